// Package main is the clausemark CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redline-labs/clausemark/internal/cli"
	"github.com/redline-labs/clausemark/internal/clause"
	"github.com/redline-labs/clausemark/internal/config"
	"github.com/redline-labs/clausemark/internal/docid"
	"github.com/redline-labs/clausemark/internal/extract"
	"github.com/redline-labs/clausemark/internal/fetch"
	"github.com/redline-labs/clausemark/internal/highlight"
	"github.com/redline-labs/clausemark/internal/ingest"
	"github.com/redline-labs/clausemark/internal/models"
	"github.com/redline-labs/clausemark/internal/resource"
	"github.com/redline-labs/clausemark/internal/server"
	"github.com/redline-labs/clausemark/internal/storage"
	"github.com/redline-labs/clausemark/internal/viewer"
	"github.com/redline-labs/clausemark/internal/watcher"
	"github.com/redline-labs/clausemark/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/clausemark/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "clausemark server" from the project dir uses the
// project's config (including debug). Returns the config and the path that was
// actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Upstream credentials live in .env during development; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "clauses":
		runClauses()
	case "highlight":
		runHighlight()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("clausemark version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (resource evictions, highlight attempts, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ing := components.Ingestor
	exts := cfg.Watch.Extensions
	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		exts,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if err := ing.IngestFile(context.Background(), path, exts); err != nil {
				logger.Warn("watch ingest file failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			abs, _ := filepath.Abs(path)
			if err := ing.DeleteDocument(context.Background(), docid.FromPath(abs)); err != nil {
				logger.Warn("watch delete by path failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Storage,
		components.Files,
		components.Ingestor,
		components.Resources,
		components.Fetcher,
		watchSvc,
		cfg,
		resolvedConfigPath,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: clausemark ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, cfg := mustInitialize(*configPath)
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		exts := cfg.Watch.Extensions
		n, err := components.Ingestor.IngestDirectory(ctx, path, exts)
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	// Single file: no extension filter
	if err := components.Ingestor.IngestFile(ctx, path, nil); err != nil {
		fmt.Printf("Ingest failed: %v\n", err)
		os.Exit(1)
	}
	absPath, _ := filepath.Abs(path)
	fmt.Printf("Document ingested: %s\n", docid.FromPath(absPath))
}

func runClauses() {
	fs := flag.NewFlagSet("clauses", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: clausemark clauses [flags] <document-id-or-file>")
		os.Exit(1)
	}
	components, _ := mustInitialize(*configPath)
	defer components.Close()

	ctx := context.Background()
	id := resolveDocID(fs.Arg(0))
	clauses, err := components.Storage.GetClausesByDocumentID(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load clauses: %v\n", err)
		os.Exit(1)
	}
	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteClauses(os.Stdout, clauses, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// runHighlight runs a one-shot highlight attempt for a clause of an already
// ingested document, building the page view directly from storage.
func runHighlight() {
	fs := flag.NewFlagSet("highlight", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	viewModeFlag := fs.String("view-mode", "single_page", "view mode: single_page or continuous_scroll")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: clausemark highlight [flags] <document-id-or-file> <clause-index>")
		os.Exit(1)
	}
	clauseIndex, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		fmt.Printf("Invalid clause index: %s\n", fs.Arg(1))
		os.Exit(1)
	}

	components, cfg := mustInitialize(*configPath)
	defer components.Close()

	ctx := context.Background()
	id := resolveDocID(fs.Arg(0))
	doc, err := components.Storage.GetDocument(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Document not found: %s (ingest it first)\n", id)
		os.Exit(1)
	}
	clauses, err := components.Storage.GetClausesByDocumentID(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load clauses: %v\n", err)
		os.Exit(1)
	}
	target := clauseAt(clauses, clauseIndex)
	if target == nil {
		fmt.Fprintf(os.Stderr, "No clause with index %d (document has %d clauses)\n", clauseIndex, len(clauses))
		os.Exit(1)
	}

	mode := highlight.ViewSinglePage
	if *viewModeFlag == "continuous_scroll" {
		mode = highlight.ViewContinuousScroll
	}
	view, err := viewer.NewPageView(doc.Pages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build page view: %v\n", err)
		os.Exit(1)
	}
	defer view.Close()
	coord := highlight.NewCoordinator(view, view, &cfg.Highlight, mode)

	coord.ExecuteHighlighting(target)
	deadline := time.Now().Add(cfg.Highlight.Debounce() + 10*time.Second)
	for coord.IsHighlighting() {
		if time.Now().After(deadline) {
			fmt.Fprintln(os.Stderr, "Highlight attempt did not finish in time")
			os.Exit(1)
		}
		time.Sleep(25 * time.Millisecond)
	}

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteHighlightResult(os.Stdout, coord.Result(), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: clausemark delete [flags] <document-id-or-file>")
		os.Exit(1)
	}
	components, _ := mustInitialize(*configPath)
	defer components.Close()

	id := resolveDocID(fs.Arg(0))
	if err := components.Ingestor.DeleteDocument(context.Background(), id); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", id)
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents      int64           `json:"documents"`
	Clauses        int64           `json:"clauses"`
	Resources      resource.Status `json:"resources"`
	DiskUsageBytes *int64          `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		components, cfg := mustInitialize(*configPath)
		defer components.Close()
		ctx := context.Background()
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		clauseCount, err := components.Storage.CountClauses(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count clauses failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents: docCount,
			Clauses:   clauseCount,
			Resources: components.Resources.Status(),
		}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.FileStoreDir)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:       %d   # count of ingested documents\n", status.Documents)
		fmt.Printf("clauses:         %d   # count of segmented clauses\n", status.Clauses)
		fmt.Printf("resources:       %d   # live cached payloads with access URLs\n", status.Resources.ResourceCount)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes: %d   # metadata database + payload store on disk\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: clausemark watch <add|remove|list> [path]")
		fmt.Println("  clausemark watch add <path>     Add drop directory to watch")
		fmt.Println("  clausemark watch remove <path>  Remove directory from watch")
		fmt.Println("  clausemark watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: clausemark watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: clausemark watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// clauseAt returns the clause with the given index, or nil.
func clauseAt(clauses []*models.Clause, index int) *models.Clause {
	for _, c := range clauses {
		if c.ClauseIndex == index {
			return c
		}
	}
	return nil
}

// resolveDocID accepts either a document id or a file path; existing paths are
// converted to the path-derived document id.
func resolveDocID(arg string) string {
	if _, err := os.Stat(arg); err == nil {
		abs, _ := filepath.Abs(arg)
		return docid.FromPath(abs)
	}
	return arg
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Files     *storage.FileStore
	Ingestor  *ingest.Ingestor
	Resources *resource.Manager
	Fetcher   *fetch.Client
}

func (c *Components) Close() {
	if c.Resources != nil {
		c.Resources.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	files, err := storage.NewFileStore(cfg.Storage.FileStoreDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	resOpts := []resource.Option{}
	ingOpts := []ingest.Option{}
	if debug && logger != nil {
		resOpts = append(resOpts, resource.WithLogger(logger))
		ingOpts = append(ingOpts, ingest.WithLogger(logger))
	}
	resources := resource.NewManager(cfg.Resources, resOpts...)
	if err := resources.Initialize(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize resource manager: %w", err)
	}

	var fetcher *fetch.Client
	if cfg.Fetch.BaseURL != "" {
		token := os.Getenv(cfg.Fetch.TokenEnv)
		fetcher = fetch.NewClient(cfg.Fetch.BaseURL, token, cfg.Fetch.Timeout())
	}

	ing := ingest.NewIngestor(store, files, extract.NewExtractor(), clause.NewSegmenter(), ingOpts...)

	return &Components{
		Storage:   store,
		Files:     files,
		Ingestor:  ing,
		Resources: resources,
		Fetcher:   fetcher,
	}, nil
}

// mustInitialize loads config, builds a logger, and initializes components,
// exiting on failure. Shared by the direct-storage CLI commands.
func mustInitialize(configPath string) (*Components, *config.Config) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, cfg
}

func printUsage() {
	fmt.Println(`clausemark - Contract clause ingestion and highlighting service

Usage:
  clausemark server [flags]                  Start the HTTP server
  clausemark ingest [flags] <file-or-dir>    Ingest a contract document
  clausemark clauses [flags] <doc>           List a document's clauses
  clausemark highlight [flags] <doc> <n>     Highlight clause n of a document
  clausemark delete [flags] <doc>            Delete a document
  clausemark status [flags]                  Show storage/resource status
  clausemark watch <add|remove|list>         Manage watched drop directories
  clausemark version                         Show version
  clausemark help                            Show this help

<doc> is a document id or a path to an ingested file.

Server Flags:
  --config string    Config file path (default: /usr/local/etc/clausemark/config.yaml)
  --debug            Enable debug logging (resource evictions, highlight attempts, etc.)

Highlight Flags:
  --config string      Config file path
  --view-mode string   single_page or continuous_scroll (default: single_page)
  --output string      Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  clausemark server
  clausemark ingest contracts/msa.pdf
  clausemark clauses contracts/msa.pdf
  clausemark highlight contracts/msa.pdf 3
  clausemark highlight --view-mode continuous_scroll contracts/msa.pdf 3
  clausemark status --output json
  clausemark watch add /path/to/contracts`)
}
