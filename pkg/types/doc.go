// Package types holds the shared domain model: repository references
// and records, head info (branches, commit time, language and tag
// maps) consumed by the per-file workers, and the pass report.
package types
