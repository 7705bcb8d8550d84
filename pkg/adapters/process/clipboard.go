// Package process implements ports.Clipboard on top of the system clipboard
// programs (pbcopy, wl-copy, xclip...).
package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single clipboard program run.
const DefaultTimeout = 5 * time.Second

// Clipboard runs external programs to exchange node payloads with the
// system clipboard, so nodes can be copied between processes.
type Clipboard struct {
	cfg     ClipboardConfig
	baseDir string
	timeout time.Duration
}

// Option configures the Clipboard.
type Option func(*Clipboard)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(c *Clipboard) {
		c.baseDir = dir
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Clipboard) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClipboard creates a clipboard running the programs of cfg.
func NewClipboard(cfg ClipboardConfig, opts ...Option) (*Clipboard, error) {
	if !cfg.Valid() {
		return nil, fmt.Errorf("clipboard requires both copy and paste commands")
	}
	c := &Clipboard{cfg: cfg, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Read returns the clipboard contents as printed by the paste program.
func (c *Clipboard) Read(ctx context.Context) ([]byte, error) {
	out, err := c.run(ctx, c.cfg.Paste, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard: %w", err)
	}
	return out, nil
}

// Write feeds data to the copy program's standard input.
func (c *Clipboard) Write(ctx context.Context, data []byte) error {
	if _, err := c.run(ctx, c.cfg.Copy, data); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

func (c *Clipboard) run(ctx context.Context, spec Command, stdin []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = c.baseDir
	env := cmd.Environ()
	for k, v := range spec.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", spec.Command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
