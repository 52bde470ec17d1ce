package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "payloads"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}

func TestFileStoreSaveLoad(t *testing.T) {
	fs := newTestFileStore(t)

	if err := fs.Save("file:abc123", ".pdf", []byte("%PDF-1.4 data")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, ext, err := fs.Load("file:abc123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != "%PDF-1.4 data" || ext != ".pdf" {
		t.Errorf("got %q ext %q", data, ext)
	}
}

func TestFileStoreSaveReplacesOldExtension(t *testing.T) {
	fs := newTestFileStore(t)

	if err := fs.Save("doc-1", ".docx", []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Save("doc-1", ".pdf", []byte("new")); err != nil {
		t.Fatal(err)
	}
	data, ext, err := fs.Load("doc-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != "new" || ext != ".pdf" {
		t.Errorf("got %q ext %q, stale payload not replaced", data, ext)
	}
}

func TestFileStoreSaveDefaultExtension(t *testing.T) {
	fs := newTestFileStore(t)
	if err := fs.Save("doc-1", "", []byte("raw")); err != nil {
		t.Fatal(err)
	}
	_, ext, err := fs.Load("doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if ext != ".bin" {
		t.Errorf("ext: got %q, want .bin", ext)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	fs := newTestFileStore(t)
	_, _, err := fs.Load("never-saved")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("want os.ErrNotExist, got %v", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	fs := newTestFileStore(t)
	if err := fs.Save("doc-1", ".pdf", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Delete("doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := fs.Load("doc-1"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("payload still present: %v", err)
	}
	// Deleting again is a no-op.
	if err := fs.Delete("doc-1"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 100), 0600); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.bin"), make([]byte, 50), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := DiskUsageBytes(dir)
	if err != nil {
		t.Fatalf("DiskUsageBytes: %v", err)
	}
	if got != 150 {
		t.Errorf("got %d, want 150", got)
	}

	// Missing paths are skipped, empty paths ignored.
	got, err = DiskUsageBytes(dir, "", filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("DiskUsageBytes with missing: %v", err)
	}
	if got != 150 {
		t.Errorf("got %d, want 150", got)
	}
}
