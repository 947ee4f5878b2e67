package semantic

import "bytes"

const (
	// DefaultChunkLines is the window height of one embedding chunk.
	DefaultChunkLines = 40

	// DefaultChunkStride is how far the window advances per chunk;
	// anything below DefaultChunkLines gives overlapping context.
	DefaultChunkStride = 30
)

// Chunk is a contiguous slice of a file's bytes submitted for
// embedding, with its 1-based line span.
type Chunk struct {
	Data      []byte
	StartLine uint32
	EndLine   uint32
}

// SplitLines cuts file contents into line windows of `window` lines,
// advancing `stride` lines per chunk. Blank-only chunks are dropped.
func SplitLines(data []byte, window, stride int) []Chunk {
	if window <= 0 {
		window = DefaultChunkLines
	}
	if stride <= 0 {
		stride = DefaultChunkStride
	}
	if stride > window {
		stride = window
	}

	lines := bytes.SplitAfter(data, []byte("\n"))
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	var chunks []Chunk
	for start := 0; start < len(lines); start += stride {
		end := start + window
		if end > len(lines) {
			end = len(lines)
		}

		var buf []byte
		for _, l := range lines[start:end] {
			buf = append(buf, l...)
		}

		if len(bytes.TrimSpace(buf)) > 0 {
			chunks = append(chunks, Chunk{
				Data:      buf,
				StartLine: uint32(start + 1),
				EndLine:   uint32(end),
			})
		}

		if end == len(lines) {
			break
		}
	}

	return chunks
}
