// Package content derives the identities everything else keys on:
// the schema-versioned file hash, the chunk id that doubles as the
// vector-store point id, and the branch-set digest. All three are
// deterministic pure functions of their inputs.
package content
