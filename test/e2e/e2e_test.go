package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redline-labs/clausemark/internal/clause"
	"github.com/redline-labs/clausemark/internal/config"
	"github.com/redline-labs/clausemark/internal/docid"
	"github.com/redline-labs/clausemark/internal/extract"
	"github.com/redline-labs/clausemark/internal/highlight"
	"github.com/redline-labs/clausemark/internal/ingest"
	"github.com/redline-labs/clausemark/internal/models"
	"github.com/redline-labs/clausemark/internal/storage"
	"github.com/redline-labs/clausemark/internal/viewer"
)

func fastHighlightConfig() *config.HighlightConfig {
	return &config.HighlightConfig{
		DebounceMS:       10,
		SinglePage:       config.TimingProfile{InitialDelayMS: 1, RetryDelayMS: 1, JumpDelayMS: 1},
		ContinuousScroll: config.TimingProfile{InitialDelayMS: 1, RetryDelayMS: 1, JumpDelayMS: 1},
	}
}

type components struct {
	store storage.Storage
	ing   *ingest.Ingestor
}

func newComponents(t *testing.T) *components {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	files, err := storage.NewFileStore(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatal(err)
	}
	ing := ingest.NewIngestor(store, files, extract.NewExtractor(), clause.NewSegmenter())
	return &components{store: store, ing: ing}
}

func awaitResult(t *testing.T, coord *highlight.Coordinator) *models.HighlightResult {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for coord.IsHighlighting() {
		if time.Now().After(deadline) {
			t.Fatal("highlight attempt did not finish in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return coord.Result()
}

// highlightClause runs a full attempt for the clause with the given index and
// returns the terminal result.
func highlightClause(t *testing.T, c *components, docID string, clauseIndex int) *models.HighlightResult {
	t.Helper()
	ctx := context.Background()
	doc, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		t.Fatalf("document %s: %v", docID, err)
	}
	clauses, err := c.store.GetClausesByDocumentID(ctx, docID)
	if err != nil {
		t.Fatalf("clauses for %s: %v", docID, err)
	}
	var target *models.Clause
	for _, cl := range clauses {
		if cl.ClauseIndex == clauseIndex {
			target = cl
			break
		}
	}
	if target == nil {
		t.Fatalf("document %s has no clause with index %d (%d clauses)", docID, clauseIndex, len(clauses))
	}

	view, err := viewer.NewPageView(doc.Pages)
	if err != nil {
		t.Fatalf("page view for %s: %v", docID, err)
	}
	defer view.Close()

	coord := highlight.NewCoordinator(view, view, fastHighlightConfig(), highlight.ViewSinglePage)
	coord.ExecuteHighlighting(target)
	return awaitResult(t, coord)
}

func TestE2E_CorpusHighlighting(t *testing.T) {
	c := newComponents(t)
	ctx := context.Background()
	corpus := BuildCorpus()
	if len(corpus.Documents) == 0 || len(corpus.Cases) == 0 {
		t.Fatal("corpus is empty")
	}

	for _, d := range corpus.Documents {
		if _, err := c.ing.IngestBytes(ctx, d.ID, d.Title, []byte(d.Text), ".txt", nil); err != nil {
			t.Fatalf("ingest %s: %v", d.ID, err)
		}
	}

	for _, tc := range corpus.Cases {
		t.Run(tc.Description, func(t *testing.T) {
			result := highlightClause(t, c, tc.DocID, tc.ClauseIndex)
			if result == nil {
				t.Fatal("no result")
			}
			if !result.Found {
				t.Fatalf("clause not located: %+v", result)
			}
			if result.MatchCount < 1 {
				t.Errorf("match count: %d", result.MatchCount)
			}
		})
	}
}

// TestE2E_FileFormats writes contracts to disk in every supported format,
// ingests the directory, and highlights a clause of each resulting document.
func TestE2E_FileFormats(t *testing.T) {
	c := newComponents(t)
	ctx := context.Background()

	docDir := filepath.Join(t.TempDir(), "contracts")
	if err := os.MkdirAll(docDir, 0755); err != nil {
		t.Fatal(err)
	}

	corpus := BuildCorpus()
	type written struct {
		path string
		ext  string
	}
	var wrote []written
	for i, d := range corpus.Documents {
		if i >= 2*len(SupportedFileExtensions) {
			break
		}
		ext := SupportedFileExtensions[i%len(SupportedFileExtensions)]
		data, err := WriteMinimalFile(ext, d.Text)
		if err != nil {
			t.Fatalf("build %s fixture: %v", ext, err)
		}
		path := filepath.Join(docDir, d.ID+ext)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		wrote = append(wrote, written{path: path, ext: ext})
	}

	n, err := c.ing.IngestDirectory(ctx, docDir, SupportedFileExtensions)
	if err != nil {
		t.Fatalf("ingest directory: %v", err)
	}
	if n != len(wrote) {
		t.Fatalf("ingested %d files, want %d", n, len(wrote))
	}

	for _, w := range wrote {
		t.Run(filepath.Base(w.path), func(t *testing.T) {
			abs, _ := filepath.Abs(w.path)
			result := highlightClause(t, c, docid.FromPath(abs), 0)
			if result == nil || !result.Found {
				t.Fatalf("clause not located in %s file: %+v", w.ext, result)
			}
		})
	}
}
