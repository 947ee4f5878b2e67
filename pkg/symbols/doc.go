// Package symbols models the symbol set attached to an indexed file:
// the Extractor contract for syntax-aware extraction, the ctags-style
// tag-map fallback, and the serialized location bytes stored alongside
// the searchable flattened symbol text. Extraction failures degrade
// (scope graph, then tags, then nothing); they never block indexing.
package symbols
