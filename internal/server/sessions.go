package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/redline-labs/clausemark/internal/config"
	"github.com/redline-labs/clausemark/internal/highlight"
	"github.com/redline-labs/clausemark/internal/storage"
	"github.com/redline-labs/clausemark/internal/viewer"
	"go.uber.org/zap"
)

// session is one open document view: the rendered pages plus the highlight
// coordinator driving them. Sessions are keyed by document id and view mode so
// single-page and continuous-scroll views get their own timing profiles.
type session struct {
	view  *viewer.PageView
	coord *highlight.Coordinator
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	storage  storage.Storage
	cfg      *config.HighlightConfig
	logger   *zap.Logger
}

func newSessionStore(store storage.Storage, cfg *config.HighlightConfig, logger *zap.Logger) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		storage:  store,
		cfg:      cfg,
		logger:   logger,
	}
}

func sessionKey(docID string, mode highlight.ViewMode) string {
	return fmt.Sprintf("%s|%s", docID, mode)
}

// get returns the session for the document and view mode, building it from
// the stored pages on first use.
func (st *sessionStore) get(ctx context.Context, docID string, mode highlight.ViewMode) (*session, error) {
	key := sessionKey(docID, mode)
	st.mu.Lock()
	if s, ok := st.sessions[key]; ok {
		st.mu.Unlock()
		return s, nil
	}
	st.mu.Unlock()

	doc, err := st.storage.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	view, err := viewer.NewPageView(doc.Pages)
	if err != nil {
		return nil, err
	}
	coord := highlight.NewCoordinator(view, view, st.cfg, mode,
		highlight.WithCoordinatorLogger(st.logger))

	st.mu.Lock()
	defer st.mu.Unlock()
	// Another request may have built the session while we were loading.
	if s, ok := st.sessions[key]; ok {
		_ = view.Close()
		return s, nil
	}
	s := &session{view: view, coord: coord}
	st.sessions[key] = s
	return s, nil
}

// drop closes every session for the document. Called when a document is
// updated or deleted so stale page views do not serve old text.
func (st *sessionStore) drop(docID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, mode := range []highlight.ViewMode{highlight.ViewSinglePage, highlight.ViewContinuousScroll} {
		key := sessionKey(docID, mode)
		if s, ok := st.sessions[key]; ok {
			s.coord.ClearCurrentHighlights()
			_ = s.view.Close()
			delete(st.sessions, key)
		}
	}
}

// closeAll tears down every session. Used at shutdown.
func (st *sessionStore) closeAll() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for key, s := range st.sessions {
		s.coord.ClearCurrentHighlights()
		_ = s.view.Close()
		delete(st.sessions, key)
	}
}
