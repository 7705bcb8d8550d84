package process

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Command describes one external program invocation.
type Command struct {
	Command     string            `yaml:"command" json:"command" toml:"command"`
	Args        []string          `yaml:"args,omitempty" json:"args,omitempty" toml:"args"`
	Environment map[string]string `yaml:"env,omitempty" json:"env,omitempty" toml:"env"`
}

// ClipboardConfig names the programs used to copy to and paste from the
// system clipboard.
type ClipboardConfig struct {
	Copy  Command `yaml:"copy" json:"copy" toml:"copy"`
	Paste Command `yaml:"paste" json:"paste" toml:"paste"`
}

// Valid reports whether both commands are set.
func (c ClipboardConfig) Valid() bool {
	return c.Copy.Command != "" && c.Paste.Command != ""
}

// candidates are the well-known clipboard tools, tried in order.
var candidates = map[string][]ClipboardConfig{
	"darwin": {
		{Copy: Command{Command: "pbcopy"}, Paste: Command{Command: "pbpaste"}},
	},
	"linux": {
		{Copy: Command{Command: "wl-copy"}, Paste: Command{Command: "wl-paste", Args: []string{"--no-newline"}}},
		{Copy: Command{Command: "xclip", Args: []string{"-selection", "clipboard"}}, Paste: Command{Command: "xclip", Args: []string{"-selection", "clipboard", "-o"}}},
		{Copy: Command{Command: "xsel", Args: []string{"--clipboard", "--input"}}, Paste: Command{Command: "xsel", Args: []string{"--clipboard", "--output"}}},
	},
	"windows": {
		{Copy: Command{Command: "clip"}, Paste: Command{Command: "powershell", Args: []string{"-NoProfile", "-Command", "Get-Clipboard -Raw"}}},
	},
}

// Detect returns the first clipboard configuration whose programs are
// installed on this system.
func Detect() (ClipboardConfig, error) {
	for _, c := range candidates[runtime.GOOS] {
		if _, err := exec.LookPath(c.Copy.Command); err != nil {
			continue
		}
		if _, err := exec.LookPath(c.Paste.Command); err != nil {
			continue
		}
		return c, nil
	}
	return ClipboardConfig{}, fmt.Errorf("no clipboard program found for %s", runtime.GOOS)
}
