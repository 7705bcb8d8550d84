// Package config loads the project configuration file (arbor.yaml,
// arbor.yml, arbor.json or arbor.toml) from a project directory.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aretw0/arbor/pkg/adapters/process"
	"gopkg.in/yaml.v3"
)

// FileNames are the accepted config file names, in lookup order.
var FileNames = []string{"arbor.yaml", "arbor.yml", "arbor.json", "arbor.toml"}

// Config holds the project configuration.
type Config struct {
	Documents    string          `yaml:"documents" json:"documents" toml:"documents"`
	Catalog      string          `yaml:"catalog,omitempty" json:"catalog,omitempty" toml:"catalog"`
	DefaultNode  string          `yaml:"default_node,omitempty" json:"default_node,omitempty" toml:"default_node"`
	RootNode     string          `yaml:"root_node,omitempty" json:"root_node,omitempty" toml:"root_node"`
	HistoryLimit int             `yaml:"history_limit,omitempty" json:"history_limit,omitempty" toml:"history_limit"`
	Build        BuildConfig     `yaml:"build" json:"build" toml:"build"`
	Redis        RedisConfig     `yaml:"redis,omitempty" json:"redis,omitempty" toml:"redis"`
	Clipboard    ClipboardConfig `yaml:"clipboard,omitempty" json:"clipboard,omitempty" toml:"clipboard"`
	Server       ServerConfig    `yaml:"server,omitempty" json:"server,omitempty" toml:"server"`
	Storage      StorageConfig   `yaml:"storage,omitempty" json:"storage,omitempty" toml:"storage"`

	// dir is the directory the file was loaded from.
	dir string
}

// BuildConfig controls the build command.
type BuildConfig struct {
	Output         string `yaml:"output" json:"output" toml:"output"`
	InlineSubtrees bool   `yaml:"inline_subtrees" json:"inline_subtrees" toml:"inline_subtrees"`
	// Redact lists patterns of argument names masked in the output.
	Redact []string `yaml:"redact,omitempty" json:"redact,omitempty" toml:"redact"`
}

// RedisConfig switches document storage and locking to Redis when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty" json:"addr,omitempty" toml:"addr"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" toml:"password"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty" toml:"db"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty" toml:"prefix"`
}

// ClipboardConfig selects the clipboard. With System set the platform's
// clipboard programs are detected unless Copy and Paste are given.
type ClipboardConfig struct {
	System bool            `yaml:"system,omitempty" json:"system,omitempty" toml:"system"`
	Copy   process.Command `yaml:"copy,omitempty" json:"copy,omitempty" toml:"copy"`
	Paste  process.Command `yaml:"paste,omitempty" json:"paste,omitempty" toml:"paste"`
}

// StorageConfig enables at-rest encryption of documents. Keys are base64
// AES-256 keys; fallback keys only decrypt.
type StorageConfig struct {
	EncryptionKey string   `yaml:"encryption_key,omitempty" json:"encryption_key,omitempty" toml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys,omitempty" json:"fallback_keys,omitempty" toml:"fallback_keys"`
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty" toml:"addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Documents: ".",
		Build:     BuildConfig{Output: "build"},
		Server:    ServerConfig{Addr: ":8080"},
		dir:       ".",
	}
}

// Find returns the config file inside dir, or "" when there is none.
func Find(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Load reads the config file of dir over the defaults.
// A directory without a config file yields the defaults.
func Load(dir string) (*Config, error) {
	cfg := Default()
	cfg.dir = dir

	path := Find(dir)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Decode(filepath.Ext(path), data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return cfg, cfg.Validate()
}

// Decode parses data in the format named by ext into cfg.
func Decode(ext string, data []byte, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err := dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// Validate reports inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	if c.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("history_limit must not be negative"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must not be negative"))
	}
	if (c.Clipboard.Copy.Command == "") != (c.Clipboard.Paste.Command == "") {
		errs = append(errs, fmt.Errorf("clipboard needs both copy and paste commands"))
	}
	if c.Storage.EncryptionKey == "" && len(c.Storage.FallbackKeys) > 0 {
		errs = append(errs, fmt.Errorf("storage.fallback_keys needs storage.encryption_key"))
	}
	if c.Documents == "" {
		c.Documents = "."
	}
	if c.Build.Output == "" {
		c.Build.Output = "build"
	}
	return errors.Join(errs...)
}

// Dir returns the project directory.
func (c *Config) Dir() string {
	return c.dir
}

// Path resolves p against the project directory. Absolute paths are kept.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// DocumentsDir is the absolute-or-relative documents directory.
func (c *Config) DocumentsDir() string {
	return c.Path(c.Documents)
}

// UseRedis reports whether documents live in Redis.
func (c *Config) UseRedis() bool {
	return c.Redis.Addr != ""
}

// ClipboardCommands returns the configured system clipboard, if any.
func (c *Config) ClipboardCommands() (process.ClipboardConfig, bool, error) {
	cc := process.ClipboardConfig{Copy: c.Clipboard.Copy, Paste: c.Clipboard.Paste}
	if cc.Valid() {
		return cc, true, nil
	}
	if !c.Clipboard.System {
		return cc, false, nil
	}
	detected, err := process.Detect()
	if err != nil {
		return cc, false, err
	}
	return detected, true, nil
}

// Write stores cfg in dir using the format named by fileName.
func Write(dir, fileName string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", fileName)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fileName), data, 0o644)
}
