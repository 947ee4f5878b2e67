package symbols

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/thomascherickal/bloop.ai/pkg/types"
)

// Symbol is one named region of a file, addressed by byte range.
type Symbol struct {
	Name      string `json:"name,omitempty"`
	Kind      string `json:"kind,omitempty"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
}

// Extractor produces the symbols of a file from its bytes and language
// tag. Implementations must be pure and safe for parallel invocation;
// the pipeline calls them from every worker.
type Extractor interface {
	Extract(data []byte, lang string) ([]Symbol, error)
}

// Provenance records which stage of the fallback chain produced the
// locations: the syntax-aware extractor, the precomputed tag map, or
// nothing.
type Provenance string

const (
	ProvenanceScopeGraph Provenance = "scope_graph"
	ProvenanceCtags      Provenance = "ctags"
	ProvenanceEmpty      Provenance = "empty"
)

// Locations is the symbol set attached to one document, tagged with
// where it came from. It serializes to the opaque stored bytes of the
// symbol_locations field.
type Locations struct {
	Provenance Provenance `json:"provenance"`
	Symbols    []Symbol   `json:"symbols,omitempty"`
}

// FromScopeGraph wraps extractor output.
func FromScopeGraph(list []Symbol) Locations {
	return Locations{Provenance: ProvenanceScopeGraph, Symbols: list}
}

// FromTags converts precomputed ctags-style entries.
func FromTags(tags []types.TaggedSymbol) Locations {
	list := make([]Symbol, len(tags))
	for i, tag := range tags {
		list[i] = Symbol{
			Name:      tag.Name,
			Kind:      tag.Kind,
			StartByte: tag.StartByte,
			EndByte:   tag.EndByte,
		}
	}
	return Locations{Provenance: ProvenanceCtags, Symbols: list}
}

// Empty is the terminal fallback: the file is indexed without symbols.
func Empty() Locations {
	return Locations{Provenance: ProvenanceEmpty}
}

// Serialize renders the locations as the opaque bytes stored in the
// full-text document.
func (l Locations) Serialize() ([]byte, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize symbol locations: %w", err)
	}
	return data, nil
}

// Deserialize is the inverse of Serialize.
func Deserialize(data []byte) (Locations, error) {
	var l Locations
	if err := json.Unmarshal(data, &l); err != nil {
		return Locations{}, fmt.Errorf("failed to deserialize symbol locations: %w", err)
	}
	return l, nil
}

// Flatten slices each symbol's text out of the file and returns the
// de-duplicated, newline-joined result used by the searchable symbols
// field. Ranges that fall outside the file are dropped.
func (l Locations) Flatten(data []byte) string {
	seen := make(map[string]struct{})
	for _, sym := range l.Symbols {
		if sym.StartByte >= sym.EndByte || int(sym.EndByte) > len(data) {
			continue
		}
		seen[string(data[sym.StartByte:sym.EndByte])] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for text := range seen {
		out = append(out, text)
	}
	sort.Strings(out)
	return strings.Join(out, "\n")
}
