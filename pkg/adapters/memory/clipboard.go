package memory

import (
	"context"
	"slices"
	"sync"
)

// Clipboard implements ports.Clipboard as a single in-process buffer.
type Clipboard struct {
	mu   sync.Mutex
	data []byte
}

// NewClipboard creates an empty clipboard.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// Read returns a copy of the buffer.
func (c *Clipboard) Read(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.data), nil
}

// Write replaces the buffer.
func (c *Clipboard) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = slices.Clone(data)
	return nil
}
