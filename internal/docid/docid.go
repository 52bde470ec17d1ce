// Package docid provides a deterministic document ID from a file path for watched files.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// FromPath returns a stable document ID for the given absolute path.
// Same path always yields the same ID. Used for ingest/update/delete by path.
func FromPath(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
