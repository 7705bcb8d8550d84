/*
Package observability provides domain.Hooks for monitoring editing sessions.

Metrics exports Prometheus counters, gauges and histograms for edit
operations, history navigation, subtree expansion and open documents.
LogHooks writes the same events to a structured logger. Both can be combined
with domain.Hooks.Merge.
*/
package observability
