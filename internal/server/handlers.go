package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mstanton/lumina/internal/enrich"
	"github.com/mstanton/lumina/internal/search"
	"github.com/mstanton/lumina/internal/store"
	"github.com/mstanton/lumina/pkg/types"
)

// Searcher is the synchronous search capability the handlers consume.
type Searcher interface {
	Search(ctx context.Context, query string) (*types.SearchResult, error)
}

// Enricher triggers enrichment runs from the API.
type Enricher interface {
	ProcessBatch(ctx context.Context, ids []string, force bool) (*enrich.Stats, error)
	ProcessAll(ctx context.Context, force bool) (*enrich.Stats, error)
}

// Handler implements the HTTP API endpoints.
type Handler struct {
	searcher Searcher
	source   search.BookmarkSource
	store    store.Store
	enricher Enricher // nil when no API key is configured
}

// NewHandler creates an API handler.
func NewHandler(searcher Searcher, source search.BookmarkSource, st store.Store, enricher Enricher) *Handler {
	return &Handler{
		searcher: searcher,
		source:   source,
		store:    st,
		enricher: enricher,
	}
}

// searchResultItem is one entry of a search response.
type searchResultItem struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	SemanticScore float64 `json:"semanticScore,omitempty"`
	MatchScore    float64 `json:"matchScore,omitempty"`
}

// searchResponse is the payload of GET /api/search.
type searchResponse struct {
	Query       string             `json:"query"`
	Outcome     string             `json:"outcome"`
	Results     []searchResultItem `json:"results"`
	RerankError string             `json:"rerankError,omitempty"`
}

// Search handles GET /api/search?q=<query>&limit=<n>.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	result, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		http.Error(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	shown := result.Bookmarks
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	resp := searchResponse{
		Query:       result.Query,
		Outcome:     string(result.Outcome),
		Results:     make([]searchResultItem, len(shown)),
		RerankError: result.RerankError,
	}
	for i, b := range shown {
		key := types.MetadataKey(b.ID)
		resp.Results[i] = searchResultItem{
			ID:            b.ID,
			Title:         b.Title,
			URL:           b.URL,
			SemanticScore: result.SemanticScores[key],
			MatchScore:    result.MatchScores[key],
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// bookmarkItem is one entry of the bookmarks listing, combining the
// bookmark with its enrichment state.
type bookmarkItem struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Status  string   `json:"status"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Bookmarks handles GET /api/bookmarks.
func (h *Handler) Bookmarks(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "failed to read metadata: "+err.Error(), http.StatusInternalServerError)
		return
	}

	bookmarks := h.source.Bookmarks()
	items := make([]bookmarkItem, len(bookmarks))
	for i, b := range bookmarks {
		item := bookmarkItem{
			ID:     b.ID,
			Title:  b.Title,
			URL:    b.URL,
			Status: string(types.StatusPending),
		}
		if meta := snapshot[types.MetadataKey(b.ID)]; meta != nil {
			item.Status = string(meta.Status)
			item.Summary = meta.Summary
			item.Tags = meta.Tags
		}
		items[i] = item
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bookmarks": items})
}

// enrichRequest is the payload of POST /api/enrich.
type enrichRequest struct {
	BookmarkIDs []string `json:"bookmarkIds"`
	// Force re-enriches bookmarks that already have a successful record.
	Force bool `json:"force"`
}

// Enrich handles POST /api/enrich. An empty id list enriches everything.
func (h *Handler) Enrich(w http.ResponseWriter, r *http.Request) {
	if h.enricher == nil {
		http.Error(w, "enrichment requires a configured GEMINI_API_KEY", http.StatusServiceUnavailable)
		return
	}

	var req enrichRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	var stats *enrich.Stats
	var err error
	if len(req.BookmarkIDs) == 0 {
		stats, err = h.enricher.ProcessAll(r.Context(), req.Force)
	} else {
		stats, err = h.enricher.ProcessBatch(r.Context(), req.BookmarkIDs, req.Force)
	}
	if err != nil {
		http.Error(w, "enrichment failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"processed":  stats.Processed,
		"failed":     stats.Failed,
		"skipped":    stats.Skipped,
		"durationMs": stats.Duration.Milliseconds(),
	})
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByStatus(r.Context())
	if err != nil {
		http.Error(w, "failed to read enrichment status: "+err.Error(), http.StatusInternalServerError)
		return
	}

	total := len(h.source.Bookmarks())
	enriched := counts[types.StatusSuccess]
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalBookmarks": total,
		"enriched":       enriched,
		"loading":        counts[types.StatusLoading],
		"errors":         counts[types.StatusError],
		"pending":        total - enriched - counts[types.StatusLoading] - counts[types.StatusError],
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
