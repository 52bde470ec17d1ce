// Package ingest provides the document ingestion pipeline: extract pages,
// segment clauses, persist metadata and the original payload.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redline-labs/clausemark/internal/clause"
	"github.com/redline-labs/clausemark/internal/docid"
	"github.com/redline-labs/clausemark/internal/extract"
	"github.com/redline-labs/clausemark/internal/models"
	"github.com/redline-labs/clausemark/internal/storage"
	"go.uber.org/zap"
)

// Ingestor turns raw document files into stored documents with clauses.
type Ingestor struct {
	storage   storage.Storage
	files     *storage.FileStore
	extractor *extract.Extractor
	segmenter *clause.Segmenter
	logger    *zap.Logger // optional; when set, logs ingest events
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingestor) { i.logger = l }
}

// NewIngestor creates an ingestor with the given dependencies.
func NewIngestor(store storage.Storage, files *storage.FileStore, extractor *extract.Extractor, segmenter *clause.Segmenter, opts ...Option) *Ingestor {
	ing := &Ingestor{
		storage:   store,
		files:     files,
		extractor: extractor,
		segmenter: segmenter,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestFile ingests the file at path. When allowedExts is non-empty, files
// with other extensions are skipped (no error). The document id is derived
// from the absolute path, so re-ingesting the same file updates in place.
func (i *Ingestor) IngestFile(ctx context.Context, path string, allowedExts []string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if !matchExtension(ext, allowedExts) {
		return nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	title := strings.TrimSuffix(filepath.Base(abs), ext)
	_, err = i.IngestBytes(ctx, docid.FromPath(abs), title, data, ext, map[string]interface{}{"path": abs})
	return err
}

// IngestDirectory ingests all matching files under dir and returns how many
// were ingested.
func (i *Ingestor) IngestDirectory(ctx context.Context, dir string, allowedExts []string) (int, error) {
	n := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if !matchExtension(strings.ToLower(filepath.Ext(path)), allowedExts) {
			return nil
		}
		if err := i.IngestFile(ctx, path, allowedExts); err != nil {
			if i.logger != nil {
				i.logger.Warn("ingest file failed", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		n++
		return nil
	})
	return n, err
}

// IngestBytes ingests a document from raw bytes. Re-ingesting an existing id
// replaces its pages, clauses, and stored payload.
func (i *Ingestor) IngestBytes(ctx context.Context, id, title string, data []byte, ext string, metadata map[string]interface{}) (*models.Document, error) {
	pages, err := i.extractor.ExtractBytes(data, ext)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", id, err)
	}

	doc := &models.Document{
		ID:        id,
		Title:     title,
		Pages:     pages,
		SourceExt: ext,
		Metadata:  metadata,
	}

	if _, err := i.storage.GetDocument(ctx, id); err == nil {
		if err := i.storage.DeleteClausesByDocumentID(ctx, id); err != nil {
			return nil, err
		}
		if err := i.storage.UpdateDocument(ctx, doc); err != nil {
			return nil, err
		}
	} else {
		if err := i.storage.CreateDocument(ctx, doc); err != nil {
			return nil, err
		}
	}

	clauses := i.segmenter.Segment(id, doc.Text())
	if err := i.storage.BatchCreateClauses(ctx, clauses); err != nil {
		return nil, err
	}
	if err := i.files.Save(id, ext, data); err != nil {
		return nil, fmt.Errorf("store payload %s: %w", id, err)
	}

	if i.logger != nil {
		i.logger.Debug("document ingested",
			zap.String("id", id),
			zap.String("title", title),
			zap.Int("pages", len(pages)),
			zap.Int("clauses", len(clauses)))
	}
	return doc, nil
}

// DeleteDocument removes a document, its clauses, and its stored payload.
func (i *Ingestor) DeleteDocument(ctx context.Context, id string) error {
	if err := i.storage.DeleteClausesByDocumentID(ctx, id); err != nil {
		return err
	}
	if err := i.storage.DeleteDocument(ctx, id); err != nil {
		return err
	}
	return i.files.Delete(id)
}

// matchExtension reports whether ext is in allowed (empty allowed = all).
func matchExtension(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, a := range allowed {
		if strings.TrimPrefix(strings.ToLower(a), ".") == extNorm {
			return true
		}
	}
	return false
}
