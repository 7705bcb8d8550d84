// Package logging builds the slog loggers used by arbor commands and servers.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type options struct {
	out    io.Writer
	format Format
}

// Option configures New.
type Option func(*options)

// WithOutput redirects log records. Defaults to Stderr, which keeps Stdout
// free for rendered trees and JSON-RPC.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithFormat selects text or JSON records. Unknown formats fall back to text.
func WithFormat(f Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// New creates the application logger. Error attributes are reported under
// "err" whatever key the caller used.
func New(level slog.Level, opts ...Option) *slog.Logger {
	o := options{out: os.Stderr, format: FormatText}
	for _, opt := range opts {
		opt(&o)
	}
	hOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: normalize,
	}
	if o.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(o.out, hOpts))
	}
	return slog.New(slog.NewTextHandler(o.out, hOpts))
}

func normalize(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case "error":
		a.Key = "err"
	case "doc":
		a.Key = "document"
	}
	return a
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
