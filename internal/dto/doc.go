// Package dto holds the shapes shared by adapters: catalog storage entries
// and the wire views of open documents.
package dto
