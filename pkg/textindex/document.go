package textindex

// Field names of the file index. FieldFileDiskPath is the primary
// delete key: refreshing a document means deleting by that term and
// appending a replacement.
const (
	FieldRepoDiskPath       = "repo_disk_path"
	FieldFileDiskPath       = "file_disk_path"
	FieldRelativePath       = "relative_path"
	FieldRepoRef            = "repo_ref"
	FieldRepoName           = "repo_name"
	FieldContent            = "content"
	FieldLineEndIndices     = "line_end_indices"
	FieldSymbols            = "symbols"
	FieldSymbolLocations    = "symbol_locations"
	FieldLang               = "lang"
	FieldAvgLineLength      = "avg_line_length"
	FieldLastCommitUnixSecs = "last_commit_unix_seconds"
)

// Document is one file entry in the full-text index.
type Document struct {
	RepoDiskPath string
	FileDiskPath string
	RelativePath string
	RepoRef      string
	RepoName     string

	// Content is newline-terminated; LineEndIndices holds the
	// little-endian u32 byte offset of every newline in it.
	Content        string
	LineEndIndices []byte

	// Symbols is the flat, de-duplicated, newline-joined symbol text;
	// SymbolLocations carries the serialized location structure.
	Symbols         string
	SymbolLocations []byte

	Lang               string
	AvgLineLength      float64
	LastCommitUnixSecs uint64
}

// Writer is the contract the indexing pipeline requires from the
// full-text engine. Semantics are append-only: AddDocument never
// updates in place, so refreshing an entry is delete-by-term followed
// by a fresh add. Implementations must be safe for concurrent use;
// the pipeline performs no locking of its own.
type Writer interface {
	AddDocument(doc Document) error
	DeleteByTerm(field, text string) error
}
