// Package textindex is the full-text side of the index: the document
// schema, the append-only Writer contract the pipeline writes through,
// and a bleve-backed implementation with the query-side reads layered
// on top. Updates are expressed as delete-by-term plus a fresh add;
// duplicate paths between the two are tolerated by readers.
package textindex
