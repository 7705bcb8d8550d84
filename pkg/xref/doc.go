// Package xref computes search matches and variable cross-references over an
// expanded tree and records them as highlight tags on the nodes.
//
// Both passes are idempotent: applying the same query twice yields the same
// tags, so callers re-apply the active query after every mutation.
package xref
