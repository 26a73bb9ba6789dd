package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// ChunkID derives the stable identifier for a chunk from its owning
// repository, file path, zero-based start row, and revision marker.
// The function is pure: re-extracting an unchanged region at the same
// revision yields the same identifier, so re-insertion is a storage
// no-op, while any differing input produces a different identifier.
func ChunkID(repo, path string, startRow int, commit string) string {
	sum := sha256.Sum256([]byte(repo + ":" + path + ":" + strconv.Itoa(startRow) + ":" + commit))
	return hex.EncodeToString(sum[:])[:16]
}
