package textindex

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/thomascherickal/bloop.ai/pkg/log"
)

// deleteBatchSize bounds how many duplicate documents one
// DeleteByTerm sweep round collects.
const deleteBatchSize = 1000

// Index is the bleve-backed file index. It satisfies Writer and also
// exposes the query-side reads the webserver layer expects.
type Index struct {
	idx bleve.Index
}

// OpenIndex opens (or creates) the file index under indexDir.
func OpenIndex(indexDir string) (*Index, error) {
	path := filepath.Join(indexDir, "file-index.bleve")

	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create file index: %w", err)
	}
	return &Index{idx: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	// Exact-match fields; file_disk_path is the delete key.
	keyword := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt(FieldFileDiskPath, keyword)
	doc.AddFieldMappingsAt(FieldRepoDiskPath, keyword)
	doc.AddFieldMappingsAt(FieldRepoRef, keyword)
	doc.AddFieldMappingsAt(FieldLang, keyword)

	// Tokenized, searchable text.
	text := bleve.NewTextFieldMapping()
	doc.AddFieldMappingsAt(FieldRelativePath, text)
	doc.AddFieldMappingsAt(FieldRepoName, text)
	doc.AddFieldMappingsAt(FieldContent, text)
	doc.AddFieldMappingsAt(FieldSymbols, text)

	// Stored-only opaque bytes, base64-wrapped.
	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Store = true
	stored.IncludeInAll = false
	doc.AddFieldMappingsAt(FieldLineEndIndices, stored)
	doc.AddFieldMappingsAt(FieldSymbolLocations, stored)

	numeric := bleve.NewNumericFieldMapping()
	doc.AddFieldMappingsAt(FieldAvgLineLength, numeric)
	doc.AddFieldMappingsAt(FieldLastCommitUnixSecs, numeric)

	im.DefaultMapping = doc
	return im
}

// AddDocument appends a new document. Every add gets a fresh internal
// id: the engine never updates in place, duplicates are resolved by
// DeleteByTerm.
func (x *Index) AddDocument(doc Document) error {
	fields := map[string]any{
		FieldRepoDiskPath:       doc.RepoDiskPath,
		FieldFileDiskPath:       doc.FileDiskPath,
		FieldRelativePath:       doc.RelativePath,
		FieldRepoRef:            doc.RepoRef,
		FieldRepoName:           doc.RepoName,
		FieldContent:            doc.Content,
		FieldLineEndIndices:     base64.StdEncoding.EncodeToString(doc.LineEndIndices),
		FieldSymbols:            doc.Symbols,
		FieldSymbolLocations:    base64.StdEncoding.EncodeToString(doc.SymbolLocations),
		FieldLang:               strings.ToLower(doc.Lang),
		FieldAvgLineLength:      doc.AvgLineLength,
		FieldLastCommitUnixSecs: float64(doc.LastCommitUnixSecs),
	}

	if err := x.idx.Index(uuid.NewString(), fields); err != nil {
		return fmt.Errorf("failed to add document for %s: %w", doc.FileDiskPath, err)
	}
	return nil
}

// DeleteByTerm removes every document whose field equals text.
func (x *Index) DeleteByTerm(field, text string) error {
	for {
		query := bleve.NewTermQuery(text)
		query.SetField(field)

		req := bleve.NewSearchRequest(query)
		req.Size = deleteBatchSize

		res, err := x.idx.Search(req)
		if err != nil {
			return fmt.Errorf("failed to search %s term: %w", field, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		for _, hit := range res.Hits {
			if err := x.idx.Delete(hit.ID); err != nil {
				return fmt.Errorf("failed to delete document %s: %w", hit.ID, err)
			}
		}

		if len(res.Hits) < deleteBatchSize {
			return nil
		}
	}
}

// DocCount returns the number of live documents.
func (x *Index) DocCount() (uint64, error) {
	return x.idx.DocCount()
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}

// ContentDocument is the query-side view of one file entry.
type ContentDocument struct {
	RepoDiskPath       string
	FileDiskPath       string
	RelativePath       string
	RepoRef            string
	Content            string
	LineEndIndices     []byte
	SymbolLocations    []byte
	Lang               string
	LastCommitUnixSecs uint64
}

// FileBody returns the content of the document stored for an absolute
// file path. Duplicate paths can exist between a content change and
// the next sweep; the first hit wins with a warning.
func (x *Index) FileBody(fileDiskPath string) (string, error) {
	doc, err := x.firstByTerm(FieldFileDiskPath, fileDiskPath)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// ByPath returns the document for a repo-relative path. The relative
// path field is tokenized for substring search, so the exact match
// happens against the stored value.
func (x *Index) ByPath(repoRef, relativePath string) (*ContentDocument, error) {
	req := bleve.NewSearchRequest(termQuery(FieldRepoRef, repoRef))
	req.Size = deleteBatchSize
	req.Fields = []string{"*"}

	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search by path: %w", err)
	}

	var matches []*ContentDocument
	for _, hit := range res.Hits {
		if stringField(hit.Fields, FieldRelativePath) != relativePath {
			continue
		}
		doc, err := contentDocument(hit.Fields)
		if err != nil {
			return nil, err
		}
		matches = append(matches, doc)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no document found for %s in %s", relativePath, repoRef)
	case 1:
	default:
		logger := log.WithComponent("textindex")
		logger.Warn().Str("relative_path", relativePath).Msg("index contains duplicates; returning first hit")
	}
	return matches[0], nil
}

// ByRepo lists documents of a repository, optionally filtered by
// language.
func (x *Index) ByRepo(repoRef, lang string) ([]*ContentDocument, error) {
	query := bleve.NewConjunctionQuery(termQuery(FieldRepoRef, repoRef))
	if lang != "" {
		query.AddQuery(termQuery(FieldLang, strings.ToLower(lang)))
	}

	req := bleve.NewSearchRequest(query)
	req.Size = 100
	req.Fields = []string{"*"}

	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search by repo: %w", err)
	}

	out := make([]*ContentDocument, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, err := contentDocument(hit.Fields)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (x *Index) firstByTerm(field, text string) (*ContentDocument, error) {
	query := termQuery(field, text)

	req := bleve.NewSearchRequest(query)
	req.Size = 2
	req.Fields = []string{"*"}

	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s term: %w", field, err)
	}

	return x.firstHit(res, text)
}

func (x *Index) firstHit(res *bleve.SearchResult, what string) (*ContentDocument, error) {
	switch len(res.Hits) {
	case 0:
		return nil, fmt.Errorf("no document found for %s", what)
	case 1:
	default:
		logger := log.WithComponent("textindex")
		logger.Warn().Str("key", what).Msg("index contains duplicates; returning first hit")
	}
	return contentDocument(res.Hits[0].Fields)
}

func termQuery(field, text string) *query.TermQuery {
	q := bleve.NewTermQuery(text)
	q.SetField(field)
	return q
}

func contentDocument(fields map[string]any) (*ContentDocument, error) {
	doc := &ContentDocument{
		RepoDiskPath: stringField(fields, FieldRepoDiskPath),
		FileDiskPath: stringField(fields, FieldFileDiskPath),
		RelativePath: stringField(fields, FieldRelativePath),
		RepoRef:      stringField(fields, FieldRepoRef),
		Content:      stringField(fields, FieldContent),
		Lang:         stringField(fields, FieldLang),
	}

	if v, ok := fields[FieldLastCommitUnixSecs].(float64); ok {
		doc.LastCommitUnixSecs = uint64(v)
	}

	var err error
	if doc.LineEndIndices, err = bytesField(fields, FieldLineEndIndices); err != nil {
		return nil, err
	}
	if doc.SymbolLocations, err = bytesField(fields, FieldSymbolLocations); err != nil {
		return nil, err
	}
	return doc, nil
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

func bytesField(fields map[string]any, name string) ([]byte, error) {
	s, ok := fields[name].(string)
	if !ok || s == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed %s field: %w", name, err)
	}
	return data, nil
}
