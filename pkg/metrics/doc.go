// Package metrics exposes the indexer's Prometheus collectors: file
// and document counters, chunk-cache operation counters, and pass and
// commit duration histograms, plus the HTTP handler and a small Timer
// helper for observing them.
package metrics
