package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redline-labs/clausemark/internal/config"
	"github.com/redline-labs/clausemark/internal/fetch"
	"github.com/redline-labs/clausemark/internal/highlight"
	"github.com/redline-labs/clausemark/internal/models"
	"github.com/redline-labs/clausemark/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.ID == "" || len(input.Content) == 0 {
		s.respondError(w, http.StatusBadRequest, "id and content are required")
		return
	}
	s.logger.Debug("ingest document request", zap.String("id", input.ID), zap.String("title", input.Title))
	doc, err := s.ingestor.IngestBytes(r.Context(), input.ID, input.Title, input.Content, input.Ext, input.Metadata)
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Any open view of this document now shows stale pages.
	s.sessions.drop(input.ID)
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     doc.ID,
		"pages":  len(doc.Pages),
		"status": "ingested",
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.ingestor.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.sessions.drop(id)
	s.resources.DestroyResource(id)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetClauses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	clauses, err := s.storage.GetClausesByDocumentID(r.Context(), id)
	if err != nil {
		s.logger.Error("get clauses failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"clauses": clauses})
}

// handleGetContent returns an access URL for the document's original payload,
// creating a resource on a cache miss. The payload comes from the local file
// store first, then the upstream fetch; fetch failures map onto the upstream
// status so "not authenticated" and "not found" stay distinguishable.
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if url, ok := s.resources.Access(id); ok {
		s.respondJSON(w, http.StatusOK, map[string]string{"url": url})
		return
	}

	data, _, err := s.files.Load(id)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("load payload failed", zap.String("id", id), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if s.fetcher == nil {
			s.respondError(w, http.StatusNotFound, "document content not found")
			return
		}
		data, err = s.fetcher.FetchDocument(r.Context(), id)
		if err != nil {
			s.logger.Warn("upstream fetch failed", zap.String("id", id), zap.Error(err))
			switch {
			case errors.Is(err, fetch.ErrUnauthorized):
				s.respondError(w, http.StatusUnauthorized, err.Error())
			case errors.Is(err, fetch.ErrNotFound):
				s.respondError(w, http.StatusNotFound, err.Error())
			default:
				s.respondError(w, http.StatusBadGateway, err.Error())
			}
			return
		}
	}

	url, err := s.resources.Create(id, data)
	if err != nil {
		s.logger.Error("resource create failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleDestroyContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.resources.DestroyResource(id)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "destroyed"})
}

// handleServeResource serves the raw payload behind an access URL. Revoked or
// unknown tokens return 404; the URL is the only capability needed.
func (s *Server) handleServeResource(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	payload, ok := s.resources.Lookup(token)
	if !ok {
		s.respondError(w, http.StatusNotFound, "resource not found or revoked")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(payload))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

type highlightRequest struct {
	ViewMode string `json:"view_mode,omitempty"`
}

func parseViewMode(s string) highlight.ViewMode {
	if s == "continuous_scroll" {
		return highlight.ViewContinuousScroll
	}
	return highlight.ViewSinglePage
}

// handleHighlightClause runs a full highlighting attempt for the clause and
// returns the terminal result. The attempt is asynchronous inside the
// coordinator (debounce, settle delays, verification), so the handler waits
// for it to finish before responding.
func (s *Server) handleHighlightClause(w http.ResponseWriter, r *http.Request) {
	clauseID := chi.URLParam(r, "id")
	var req highlightRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	mode := parseViewMode(req.ViewMode)

	clause, err := s.storage.GetClause(r.Context(), clauseID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "clause not found")
		return
	}
	sess, err := s.sessions.get(r.Context(), clause.DocumentID, mode)
	if err != nil {
		s.logger.Error("open session failed", zap.String("document_id", clause.DocumentID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sess.coord.ExecuteHighlighting(clause)
	result, err := s.awaitResult(r, sess, mode)
	if err != nil {
		s.respondError(w, http.StatusGatewayTimeout, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"result":  result,
		"matches": sess.view.Matches(),
	})
}

// awaitResult polls the coordinator until the attempt reaches a terminal
// state. The deadline covers the debounce plus the worst-case settle delays
// of the view mode's timing profile.
func (s *Server) awaitResult(r *http.Request, sess *session, mode highlight.ViewMode) (*models.HighlightResult, error) {
	profile := s.cfg.Highlight.SinglePage
	if mode == highlight.ViewContinuousScroll {
		profile = s.cfg.Highlight.ContinuousScroll
	}
	budget := s.cfg.Highlight.Debounce() +
		profile.InitialDelay() + profile.RetryDelay() + profile.JumpDelay() +
		2*time.Second
	deadline := time.Now().Add(budget)

	for sess.coord.IsHighlighting() {
		if time.Now().After(deadline) {
			return nil, errors.New("highlight attempt did not finish in time")
		}
		select {
		case <-r.Context().Done():
			return nil, r.Context().Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
	result := sess.coord.Result()
	if result == nil {
		return nil, errors.New("highlight attempt was superseded")
	}
	return result, nil
}

func (s *Server) handleGetHighlight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mode := parseViewMode(r.URL.Query().Get("view_mode"))
	sess, err := s.sessions.get(r.Context(), id, mode)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"highlighting":  sess.coord.IsHighlighting(),
		"result":        sess.coord.Result(),
		"match_index":   sess.coord.CurrentMatchIndex(),
		"total_matches": sess.coord.TotalMatches(),
	})
}

func (s *Server) handleClearHighlight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mode := parseViewMode(r.URL.Query().Get("view_mode"))
	sess, err := s.sessions.get(r.Context(), id, mode)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	sess.coord.ClearCurrentHighlights()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleNextMatch(w http.ResponseWriter, r *http.Request) {
	s.handleMatchNavigation(w, r, func(sess *session) { sess.coord.GoToNextMatch() })
}

func (s *Server) handlePreviousMatch(w http.ResponseWriter, r *http.Request) {
	s.handleMatchNavigation(w, r, func(sess *session) { sess.coord.GoToPreviousMatch() })
}

func (s *Server) handleMatchNavigation(w http.ResponseWriter, r *http.Request, move func(*session)) {
	id := chi.URLParam(r, "id")
	mode := parseViewMode(r.URL.Query().Get("view_mode"))
	sess, err := s.sessions.get(r.Context(), id, mode)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	move(sess)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_index":   sess.coord.CurrentMatchIndex(),
		"total_matches": sess.coord.TotalMatches(),
		"page":          sess.view.CurrentPage(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	clauseCount, err := s.storage.CountClauses(ctx)
	if err != nil {
		s.logger.Error("status: count clauses failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resources := s.resources.Status()
	resp := map[string]interface{}{
		"documents": docCount,
		"clauses":   clauseCount,
		"resources": resources,
	}

	configInfo := map[string]interface{}{
		"max_resources":  s.cfg.Resources.MaxResources,
		"ttl_seconds":    s.cfg.Resources.TTLSeconds,
		"database_path":  s.cfg.Storage.DatabasePath,
		"file_store_dir": s.cfg.Storage.FileStoreDir,
		"debounce_ms":    s.cfg.Highlight.DebounceMS,
		"watch_enabled":  s.watch != nil,
		"fetch_base_url": s.cfg.Fetch.BaseURL,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.cfg.Storage.DatabasePath,
		s.cfg.Storage.FileStoreDir,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.watch.Directories()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.cfgPath == "" {
		return
	}
	s.cfgMu.Lock()
	s.cfg.Watch.Directories = s.watch.Directories()
	err := config.Save(s.cfgPath, s.cfg)
	s.cfgMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
