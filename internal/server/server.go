// Package server provides the HTTP API for clausemark.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redline-labs/clausemark/internal/config"
	"github.com/redline-labs/clausemark/internal/fetch"
	"github.com/redline-labs/clausemark/internal/ingest"
	"github.com/redline-labs/clausemark/internal/resource"
	"github.com/redline-labs/clausemark/internal/storage"
	"github.com/redline-labs/clausemark/internal/watcher"
	"go.uber.org/zap"
)

// Server is the HTTP server for the clausemark API.
type Server struct {
	storage   storage.Storage
	files     *storage.FileStore
	ingestor  *ingest.Ingestor
	resources *resource.Manager
	fetcher   *fetch.Client // optional upstream; nil when no base URL configured
	sessions  *sessionStore
	watch     *watcher.Watcher // optional; nil when watch is disabled
	cfg       *config.Config
	cfgPath   string
	cfgMu     sync.Mutex
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. fetcher and watch
// may be nil; the corresponding endpoints degrade gracefully.
func NewServer(
	store storage.Storage,
	files *storage.FileStore,
	ingestor *ingest.Ingestor,
	resources *resource.Manager,
	fetcher *fetch.Client,
	watch *watcher.Watcher,
	cfg *config.Config,
	cfgPath string,
	logger *zap.Logger,
) *Server {
	return &Server{
		storage:   store,
		files:     files,
		ingestor:  ingestor,
		resources: resources,
		fetcher:   fetcher,
		sessions:  newSessionStore(store, &cfg.Highlight, logger),
		watch:     watch,
		cfg:       cfg,
		cfgPath:   cfgPath,
		logger:    logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleIngestDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/documents/{id}/clauses", s.handleGetClauses)
	r.Get("/api/v1/documents/{id}/content", s.handleGetContent)
	r.Delete("/api/v1/documents/{id}/content", s.handleDestroyContent)
	r.Get("/api/v1/resources/{token}", s.handleServeResource)

	r.Post("/api/v1/clauses/{id}/highlight", s.handleHighlightClause)
	r.Get("/api/v1/documents/{id}/highlight", s.handleGetHighlight)
	r.Delete("/api/v1/documents/{id}/highlight", s.handleClearHighlight)
	r.Post("/api/v1/documents/{id}/matches/next", s.handleNextMatch)
	r.Post("/api/v1/documents/{id}/matches/previous", s.handlePreviousMatch)

	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/health", s.handleHealth)

	return r
}

// Stop gracefully shuts down the server and closes open document sessions.
func (s *Server) Stop(ctx context.Context) error {
	s.sessions.closeAll()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
