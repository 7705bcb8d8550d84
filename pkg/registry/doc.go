// Package registry holds per-node-type callbacks applied by batch transforms.
package registry
