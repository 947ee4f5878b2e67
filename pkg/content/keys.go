package content

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

const digestSize = 32

// FileHash returns the content-addressed identity of a whole file.
//
// The schema version tag is mixed into the digest so that a document
// layout change invalidates every cache entry without an explicit
// migration: the next pass simply sees nothing but misses.
func FileHash(schemaVersionTag string, data []byte) string {
	h := blake3.New(digestSize, nil)
	h.Write([]byte(schemaVersionTag))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkID derives the identity of an embedding chunk, pinned to the
// containing file's content hash. The low 16 bytes of the digest form
// a UUID which doubles as the point id in the vector store.
func ChunkID(fileHash string, chunk []byte) uuid.UUID {
	h := blake3.New(digestSize, nil)
	h.Write([]byte(fileHash))
	h.Write(chunk)
	sum := h.Sum(nil)

	var bytes [16]byte
	copy(bytes[:], sum[digestSize-16:])
	return uuid.UUID(bytes)
}

// BranchesHash digests the ordered list of branches a chunk is visible
// on. Order matters: callers must pass branches in their canonical
// order, or equal sets will hash differently.
func BranchesHash(branches []string) string {
	sum := blake3.Sum256([]byte(strings.Join(branches, "\n")))
	return hex.EncodeToString(sum[:])
}
