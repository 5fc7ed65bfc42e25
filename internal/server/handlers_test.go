package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mstanton/lumina/internal/enrich"
	"github.com/mstanton/lumina/internal/store"
	"github.com/mstanton/lumina/pkg/types"
)

type mockSearcher struct {
	searchFunc func(ctx context.Context, query string) (*types.SearchResult, error)
}

func (m *mockSearcher) Search(ctx context.Context, query string) (*types.SearchResult, error) {
	return m.searchFunc(ctx, query)
}

type mockSource struct {
	bookmarks []types.Bookmark
}

func (m *mockSource) Bookmarks() []types.Bookmark { return m.bookmarks }

type mockEnricher struct {
	batchFunc func(ctx context.Context, ids []string, force bool) (*enrich.Stats, error)
	allFunc   func(ctx context.Context, force bool) (*enrich.Stats, error)
}

func (m *mockEnricher) ProcessBatch(ctx context.Context, ids []string, force bool) (*enrich.Stats, error) {
	return m.batchFunc(ctx, ids, force)
}

func (m *mockEnricher) ProcessAll(ctx context.Context, force bool) (*enrich.Stats, error) {
	return m.allFunc(ctx, force)
}

func setupTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSearchEndpoint(t *testing.T) {
	searcher := &mockSearcher{
		searchFunc: func(ctx context.Context, query string) (*types.SearchResult, error) {
			return &types.SearchResult{
				Query:   query,
				Outcome: types.OutcomeReranked,
				Bookmarks: []types.Bookmark{
					{ID: "3", Title: "Tesla", URL: "https://tesla.com"},
					{ID: "1", Title: "EV News", URL: "https://evnews.example"},
				},
				SemanticScores: map[string]float64{"bookmark_3": 0.82},
			}, nil
		},
	}
	h := NewHandler(searcher, &mockSource{}, setupTestStore(t), nil)

	req := httptest.NewRequest("GET", "/api/search?q=electric+cars", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp searchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Query != "electric cars" || resp.Outcome != "reranked" {
		t.Errorf("unexpected response header fields: %+v", resp)
	}
	if len(resp.Results) != 2 || resp.Results[0].ID != "3" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
	if resp.Results[0].SemanticScore != 0.82 {
		t.Errorf("expected semantic score carried, got %v", resp.Results[0].SemanticScore)
	}
}

func TestSearchEndpointLimit(t *testing.T) {
	searcher := &mockSearcher{
		searchFunc: func(ctx context.Context, query string) (*types.SearchResult, error) {
			return &types.SearchResult{
				Query:   query,
				Outcome: types.OutcomeFallback,
				Bookmarks: []types.Bookmark{
					{ID: "1"}, {ID: "2"}, {ID: "3"},
				},
			}, nil
		},
	}
	h := NewHandler(searcher, &mockSource{}, setupTestStore(t), nil)

	req := httptest.NewRequest("GET", "/api/search?q=go&limit=2", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	var resp searchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected limit applied, got %d results", len(resp.Results))
	}
}

func TestSearchEndpointBadLimit(t *testing.T) {
	h := NewHandler(&mockSearcher{}, &mockSource{}, setupTestStore(t), nil)

	for _, limit := range []string{"0", "-1", "abc"} {
		req := httptest.NewRequest("GET", "/api/search?q=go&limit="+limit, nil)
		rec := httptest.NewRecorder()
		h.Search(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", limit, rec.Code)
		}
	}
}

func TestBookmarksEndpointJoinsMetadata(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	if err := st.Put(ctx, "1", &types.Metadata{
		Status:  types.StatusSuccess,
		Summary: "EV reviews.",
		Tags:    []string{"cars"},
	}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	source := &mockSource{bookmarks: []types.Bookmark{
		{ID: "1", Title: "EVs", URL: "https://ev.example"},
		{ID: "2", Title: "Unenriched", URL: "https://raw.example"},
	}}
	h := NewHandler(nil, source, st, nil)

	req := httptest.NewRequest("GET", "/api/bookmarks", nil)
	rec := httptest.NewRecorder()
	h.Bookmarks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Bookmarks []bookmarkItem `json:"bookmarks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Bookmarks) != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", len(resp.Bookmarks))
	}
	if resp.Bookmarks[0].Status != "success" || resp.Bookmarks[0].Summary != "EV reviews." {
		t.Errorf("expected enriched record joined, got %+v", resp.Bookmarks[0])
	}
	if resp.Bookmarks[1].Status != "pending" {
		t.Errorf("expected pending status for unenriched record, got %+v", resp.Bookmarks[1])
	}
}

func TestEnrichEndpointWithoutKey(t *testing.T) {
	h := NewHandler(nil, &mockSource{}, setupTestStore(t), nil)

	req := httptest.NewRequest("POST", "/api/enrich", nil)
	rec := httptest.NewRecorder()
	h.Enrich(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a configured key, got %d", rec.Code)
	}
}

func TestEnrichEndpointBatch(t *testing.T) {
	var gotIDs []string
	enricher := &mockEnricher{
		batchFunc: func(ctx context.Context, ids []string, force bool) (*enrich.Stats, error) {
			gotIDs = ids
			return &enrich.Stats{Processed: len(ids)}, nil
		},
	}
	h := NewHandler(nil, &mockSource{}, setupTestStore(t), enricher)

	body := strings.NewReader(`{"bookmarkIds": ["1", "2"]}`)
	req := httptest.NewRequest("POST", "/api/enrich", body)
	rec := httptest.NewRecorder()
	h.Enrich(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(gotIDs) != 2 {
		t.Errorf("expected batch of 2 ids, got %v", gotIDs)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["processed"].(float64) != 2 {
		t.Errorf("unexpected stats: %v", resp)
	}
}

func TestEnrichEndpointAll(t *testing.T) {
	called := false
	enricher := &mockEnricher{
		allFunc: func(ctx context.Context, force bool) (*enrich.Stats, error) {
			called = true
			return &enrich.Stats{Processed: 5}, nil
		},
	}
	h := NewHandler(nil, &mockSource{}, setupTestStore(t), enricher)

	req := httptest.NewRequest("POST", "/api/enrich", nil)
	rec := httptest.NewRecorder()
	h.Enrich(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Error("expected empty body to enrich everything")
	}
}

func TestEnrichEndpointBadBody(t *testing.T) {
	h := NewHandler(nil, &mockSource{}, setupTestStore(t), &mockEnricher{})

	req := httptest.NewRequest("POST", "/api/enrich", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	h.Enrich(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	for _, seed := range []struct {
		id   string
		meta types.Metadata
	}{
		{"1", types.Metadata{Status: types.StatusSuccess}},
		{"2", types.Metadata{Status: types.StatusLoading}},
		{"3", types.Metadata{Status: types.StatusError, Error: "AI Error"}},
	} {
		if err := st.Put(ctx, seed.id, &seed.meta); err != nil {
			t.Fatalf("failed to seed store: %v", err)
		}
	}

	source := &mockSource{bookmarks: make([]types.Bookmark, 5)}
	h := NewHandler(nil, source, st, nil)

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	var resp map[string]float64
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["totalBookmarks"] != 5 || resp["enriched"] != 1 || resp["loading"] != 1 || resp["errors"] != 1 || resp["pending"] != 2 {
		t.Errorf("unexpected status rollup: %v", resp)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(nil, &mockSource{}, setupTestStore(t), nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestRoutesMounted(t *testing.T) {
	searcher := &mockSearcher{
		searchFunc: func(ctx context.Context, query string) (*types.SearchResult, error) {
			return &types.SearchResult{Query: query, Outcome: types.OutcomeShowAll}, nil
		},
	}
	h := NewHandler(searcher, &mockSource{}, setupTestStore(t), nil)
	srv := httptest.NewServer(New("127.0.0.1:0", h).httpServer.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/search?q=x")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from mounted route, got %d", resp.StatusCode)
	}
}
