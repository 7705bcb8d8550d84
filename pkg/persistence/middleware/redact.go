package middleware

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/tree"
)

// Mask replaces redacted argument values.
const Mask = "***"

type redactMiddleware struct {
	next     ports.DocumentStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks, on write, the node
// arguments whose names match any of the patterns. Nested maps are masked by
// key as well.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.DocumentStore) ports.DocumentStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Write(ctx context.Context, path string, doc *domain.Document) error {
	// The caller keeps its document untouched.
	cloned := tree.StorageDocument(doc, true)
	tree.Walk(cloned.Root, func(n *domain.Node) bool {
		n.Args = deepCopyMap(n.Args)
		maskMap(n.Args, m.patterns)
		return true
	})
	return m.next.Write(ctx, path, cloned)
}

func (m *redactMiddleware) Read(ctx context.Context, path string) (*domain.Document, error) {
	return m.next.Read(ctx, path)
}

func (m *redactMiddleware) Stat(ctx context.Context, path string) (time.Time, error) {
	return m.next.Stat(ctx, path)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if subMap, ok := v.(map[string]any); ok && !masked {
			maskMap(subMap, patterns)
		}
	}
}
