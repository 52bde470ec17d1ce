// Package storage also provides the on-disk store for original document payloads.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the original binary payload of each ingested document on
// disk, keyed by document id. The resource manager repopulates its cache from
// here on a miss.
type FileStore struct {
	dir string
}

// NewFileStore creates the store directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create file store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// fileName maps a document id to a filesystem-safe name. Document ids may
// contain characters like ':' that are not portable in filenames.
func (f *FileStore) fileName(id string) string {
	hash := sha256.Sum256([]byte(id))
	return hex.EncodeToString(hash[:])
}

// Save stores data as the original payload for id, replacing any previous
// payload (including one saved under a different extension).
func (f *FileStore) Save(id, ext string, data []byte) error {
	name := f.fileName(id)
	old, _ := filepath.Glob(filepath.Join(f.dir, name+".*"))
	for _, p := range old {
		_ = os.Remove(p)
	}
	if ext == "" {
		ext = ".bin"
	}
	return os.WriteFile(filepath.Join(f.dir, name+ext), data, 0600)
}

// Load returns the original payload and its extension for id.
// Returns os.ErrNotExist (wrapped) when no payload is stored.
func (f *FileStore) Load(id string) ([]byte, string, error) {
	name := f.fileName(id)
	matches, err := filepath.Glob(filepath.Join(f.dir, name+".*"))
	if err != nil {
		return nil, "", err
	}
	if len(matches) == 0 {
		return nil, "", fmt.Errorf("payload for %s: %w", id, os.ErrNotExist)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Ext(matches[0]), nil
}

// Delete removes the stored payload for id. Missing payloads are a no-op.
func (f *FileStore) Delete(id string) error {
	name := f.fileName(id)
	matches, err := filepath.Glob(filepath.Join(f.dir, name+".*"))
	if err != nil {
		return err
	}
	for _, p := range matches {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing or inaccessible paths are skipped (contribute 0); errors during walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if info.IsDir() {
			n, err := dirSize(p)
			if err != nil {
				return 0, err
			}
			total += n
		} else {
			total += info.Size()
		}
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
