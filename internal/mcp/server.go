package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mstanton/lumina/internal/bookmarks"
	"github.com/mstanton/lumina/internal/config"
	"github.com/mstanton/lumina/internal/enrich"
	"github.com/mstanton/lumina/internal/gemini"
	"github.com/mstanton/lumina/internal/search"
	"github.com/mstanton/lumina/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "lumina"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	source   *bookmarks.Source
	store    store.Store
	searcher *search.Orchestrator
	enricher *enrich.Enricher
}

// NewServer creates a new MCP server instance wired to the bookmark
// source, metadata store, and Gemini collaborators.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.BookmarksPath == "" {
		return nil, fmt.Errorf("%s must point at a bookmarks file", config.EnvBookmarksPath)
	}

	source, err := bookmarks.NewSource(cfg.BookmarksPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}

	if err := cfg.EnsureDBDir(); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	// Without a credential the pipeline still serves unfiltered results;
	// collaborators stay nil and the orchestrator short-circuits.
	var embedder search.EmbeddingProvider
	var reranker search.Reranker
	var analyzer enrich.Analyzer
	if cfg.HasAPIKey() {
		client, err := gemini.NewClient(cfg.APIKey)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		embedder = client
		reranker = client
		analyzer = client
	} else {
		embedder = noEmbedder{}
	}

	searcher := search.NewOrchestrator(source, st, embedder, reranker,
		search.WithDebounce(cfg.Debounce),
		search.WithCredentialCheck(cfg.HasAPIKey),
	)

	var enricher *enrich.Enricher
	if analyzer != nil {
		enricher = enrich.New(source, st, analyzer, cfg.Language)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		source:   source,
		store:    st,
		searcher: searcher,
		enricher: enricher,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchBookmarksTool(), s.handleSearchBookmarks)
	s.mcp.AddTool(enrichBookmarksTool(), s.handleEnrichBookmarks)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// noEmbedder satisfies the embedding contract when no credential is
// configured. It reports "unavailable" if the orchestrator ever reaches it.
type noEmbedder struct{}

func (noEmbedder) Embedding(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}
