package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mstanton/lumina/internal/bookmarks"
	"github.com/mstanton/lumina/internal/config"
	"github.com/mstanton/lumina/internal/enrich"
	"github.com/mstanton/lumina/internal/gemini"
	"github.com/mstanton/lumina/internal/search"
	"github.com/mstanton/lumina/internal/server"
	"github.com/mstanton/lumina/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.BookmarksPath == "" {
		log.Fatalf("%s must point at a bookmarks file", config.EnvBookmarksPath)
	}

	source, err := bookmarks.NewSource(cfg.BookmarksPath)
	if err != nil {
		log.Fatalf("Failed to load bookmarks: %v", err)
	}
	log.Printf("Loaded %d bookmarks from %s", len(source.Bookmarks()), cfg.BookmarksPath)

	if err := cfg.EnsureDBDir(); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer func() { _ = st.Close() }()

	var embedder search.EmbeddingProvider = unavailableEmbedder{}
	var reranker search.Reranker
	var enricher *enrich.Enricher
	if cfg.HasAPIKey() {
		client, err := gemini.NewClient(cfg.APIKey)
		if err != nil {
			log.Fatalf("Failed to initialize gemini client: %v", err)
		}
		defer func() { _ = client.Close() }()
		embedder = client
		reranker = client
		enricher = enrich.New(source, st, client, cfg.Language)
	} else {
		log.Printf("Warning: %s not set; search serves unfiltered results and enrichment is disabled", config.EnvAPIKey)
	}

	searcher := search.NewOrchestrator(source, st, embedder, reranker,
		search.WithDebounce(cfg.Debounce),
		search.WithCredentialCheck(cfg.HasAPIKey),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Re-run the last query as enrichment results land
	changes := st.Subscribe()
	go searcher.Watch(ctx, changes)

	// Pick up bookmarks added to the file while running and enrich them
	// in the background.
	if enricher != nil {
		go enricher.Run(ctx)
		go watchBookmarks(ctx, source, enricher)
	}

	handler := server.NewHandler(searcher, source, st, enricherOrNil(enricher))
	srv := server.New(cfg.HTTPAddr, handler)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// watchBookmarks reloads the bookmarks file periodically and queues any
// newly seen bookmarks for enrichment.
func watchBookmarks(ctx context.Context, source *bookmarks.Source, enricher *enrich.Enricher) {
	seen := make(map[string]bool)
	for _, b := range source.Bookmarks() {
		seen[b.ID] = true
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := source.Reload(); err != nil {
				log.Printf("Bookmarks reload failed: %v", err)
				continue
			}
			for _, b := range source.Bookmarks() {
				if seen[b.ID] {
					continue
				}
				seen[b.ID] = true
				enricher.Queue(b.ID)
			}
		}
	}
}

// enricherOrNil keeps the handler's interface value nil when no enricher
// exists, rather than a typed nil pointer.
func enricherOrNil(e *enrich.Enricher) server.Enricher {
	if e == nil {
		return nil
	}
	return e
}

// unavailableEmbedder stands in when no API key is configured; the
// orchestrator short-circuits before it is ever called.
type unavailableEmbedder struct{}

func (unavailableEmbedder) Embedding(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}
