// Package middleware wraps document stores with at-rest transformations.
package middleware

import "github.com/aretw0/arbor/pkg/ports"

// Middleware allows wrapping a DocumentStore to add behavior.
type Middleware func(ports.DocumentStore) ports.DocumentStore

// Chain applies mws to store; the first middleware is the outermost.
func Chain(store ports.DocumentStore, mws ...Middleware) ports.DocumentStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
