package ports

import "context"

// Clipboard is the channel copy writes to and paste reads from.
type Clipboard interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}
