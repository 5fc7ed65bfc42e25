package search

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mstanton/lumina/pkg/types"
)

type mockSource struct {
	bookmarks []types.Bookmark
}

func (m *mockSource) Bookmarks() []types.Bookmark { return m.bookmarks }

type mockReader struct {
	snapshotFunc func(ctx context.Context) (map[string]*types.Metadata, error)
}

func (m *mockReader) Snapshot(ctx context.Context) (map[string]*types.Metadata, error) {
	if m.snapshotFunc != nil {
		return m.snapshotFunc(ctx)
	}
	return map[string]*types.Metadata{}, nil
}

type mockEmbedder struct {
	embeddingFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Embedding(ctx context.Context, text string) ([]float32, error) {
	if m.embeddingFunc != nil {
		return m.embeddingFunc(ctx, text)
	}
	return nil, nil
}

type mockReranker struct {
	rerankFunc func(ctx context.Context, query string, candidates []types.Candidate) ([]string, error)
	calls      atomic.Int32
}

func (m *mockReranker) Rerank(ctx context.Context, query string, candidates []types.Candidate) ([]string, error) {
	m.calls.Add(1)
	if m.rerankFunc != nil {
		return m.rerankFunc(ctx, query, candidates)
	}
	return nil, errors.New("no rerank configured")
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func setupOrchestrator(t *testing.T, bookmarks []types.Bookmark, reranker *mockReranker, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewOrchestrator(&mockSource{bookmarks: bookmarks}, &mockReader{}, &mockEmbedder{}, reranker, opts...)
}

func TestSearchShortQueryShowsAll(t *testing.T) {
	bookmarks := []types.Bookmark{testBookmark("1", "one"), testBookmark("2", "two")}
	reranker := &mockReranker{}
	o := setupOrchestrator(t, bookmarks, reranker)

	res, err := o.Search(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != types.OutcomeShowAll {
		t.Errorf("expected show-all outcome, got %s", res.Outcome)
	}
	if len(res.Bookmarks) != 2 {
		t.Errorf("expected full bookmark list, got %d", len(res.Bookmarks))
	}
	if reranker.calls.Load() != 0 {
		t.Error("short query must not reach the reranker")
	}
}

func TestSearchMultibyteQueryLength(t *testing.T) {
	// Two runes, more than two bytes: long enough to trigger the pipeline.
	o := setupOrchestrator(t, nil, &mockReranker{})
	res, err := o.Search(context.Background(), "日本")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome == types.OutcomeShowAll {
		t.Error("two-rune query should run the pipeline")
	}
}

func TestSearchWithoutCredentialShowsAll(t *testing.T) {
	bookmarks := []types.Bookmark{testBookmark("1", "electric cars")}
	reranker := &mockReranker{}
	o := setupOrchestrator(t, bookmarks, reranker,
		WithCredentialCheck(func() bool { return false }))

	res, err := o.Search(context.Background(), "electric cars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != types.OutcomeShowAll {
		t.Errorf("expected show-all outcome without credential, got %s", res.Outcome)
	}
	if reranker.calls.Load() != 0 {
		t.Error("missing credential must not reach the reranker")
	}
}

func TestSearchRerankOrderIsAuthoritative(t *testing.T) {
	bookmarks := []types.Bookmark{
		testBookmark("1", "go concurrency"),
		testBookmark("2", "go concurrency"),
		testBookmark("3", "go concurrency"),
	}
	reranker := &mockReranker{
		rerankFunc: func(ctx context.Context, query string, candidates []types.Candidate) ([]string, error) {
			if len(candidates) != 3 {
				t.Errorf("expected 3 candidates, got %d", len(candidates))
			}
			return []string{"3", "1"}, nil
		},
	}
	o := setupOrchestrator(t, bookmarks, reranker)

	res, err := o.Search(context.Background(), "go concurrency")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != types.OutcomeReranked {
		t.Fatalf("expected reranked outcome, got %s", res.Outcome)
	}
	if len(res.Bookmarks) != 2 || res.Bookmarks[0].ID != "3" || res.Bookmarks[1].ID != "1" {
		t.Errorf("expected [3 1] with 2 excluded, got %v", res.Bookmarks)
	}
}

func TestSearchRerankFailureFallsBack(t *testing.T) {
	bookmarks := []types.Bookmark{
		testBookmark("1", "electric cars weekly"),
		testBookmark("2", "unrelated"),
	}
	reranker := &mockReranker{
		rerankFunc: func(ctx context.Context, query string, candidates []types.Candidate) ([]string, error) {
			return nil, errors.New("AI returned invalid JSON")
		},
	}
	o := setupOrchestrator(t, bookmarks, reranker)

	res, err := o.Search(context.Background(), "electric cars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != types.OutcomeFallback {
		t.Errorf("expected fallback outcome, got %s", res.Outcome)
	}
	if res.RerankError == "" {
		t.Error("expected rerank error recorded on the result")
	}
	if len(res.Bookmarks) != 1 || res.Bookmarks[0].ID != "1" {
		t.Errorf("expected locally ranked [1], got %v", res.Bookmarks)
	}
}

func TestSearchUnusableRankingFallsBack(t *testing.T) {
	bookmarks := []types.Bookmark{testBookmark("1", "electric cars")}
	reranker := &mockReranker{
		rerankFunc: func(ctx context.Context, query string, candidates []types.Candidate) ([]string, error) {
			return []string{"not-a-candidate"}, nil
		},
	}
	o := setupOrchestrator(t, bookmarks, reranker)

	res, err := o.Search(context.Background(), "electric cars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != types.OutcomeFallback {
		t.Errorf("expected fallback for unusable ranking, got %s", res.Outcome)
	}
}

func TestSearchEmbeddingFailureStaysLexical(t *testing.T) {
	bookmarks := []types.Bookmark{testBookmark("1", "electric cars")}
	embedder := &mockEmbedder{
		embeddingFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("embedding service down")
		},
	}
	reranker := &mockReranker{
		rerankFunc: func(ctx context.Context, query string, candidates []types.Candidate) ([]string, error) {
			return []string{"1"}, nil
		},
	}
	o := NewOrchestrator(&mockSource{bookmarks: bookmarks}, &mockReader{}, embedder, reranker,
		WithLogger(quietLogger()))

	res, err := o.Search(context.Background(), "electric cars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != types.OutcomeReranked {
		t.Errorf("expected lexical candidates to still reach reranking, got %s", res.Outcome)
	}
	if len(res.SemanticScores) != 0 {
		t.Errorf("expected no semantic scores after embedding failure, got %v", res.SemanticScores)
	}
}

func TestSearchSnapshotFailureDegrades(t *testing.T) {
	bookmarks := []types.Bookmark{testBookmark("1", "electric cars")}
	reader := &mockReader{
		snapshotFunc: func(ctx context.Context) (map[string]*types.Metadata, error) {
			return nil, errors.New("database locked")
		},
	}
	o := NewOrchestrator(&mockSource{bookmarks: bookmarks}, reader, &mockEmbedder{}, &mockReranker{},
		WithLogger(quietLogger()))

	res, err := o.Search(context.Background(), "electric cars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Title-only matching still works without metadata.
	if res.Outcome != types.OutcomeFallback || len(res.Bookmarks) != 1 {
		t.Errorf("expected fallback over titles, got %s %v", res.Outcome, res.Bookmarks)
	}
}

func TestSetQueryDebounceCoalesces(t *testing.T) {
	bookmarks := []types.Bookmark{testBookmark("1", "electric cars")}
	reranker := &mockReranker{
		rerankFunc: func(ctx context.Context, query string, candidates []types.Candidate) ([]string, error) {
			return []string{"1"}, nil
		},
	}
	o := setupOrchestrator(t, bookmarks, reranker, WithDebounce(30*time.Millisecond))

	o.SetQuery("elec")
	o.SetQuery("electric")
	o.SetQuery("electric cars")

	select {
	case res := <-o.Results():
		if res.Query != "electric cars" {
			t.Errorf("expected only the final query to settle, got %q", res.Query)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced result")
	}

	time.Sleep(60 * time.Millisecond)
	if reranker.calls.Load() != 1 {
		t.Errorf("expected a single pipeline run, got %d", reranker.calls.Load())
	}
}

func TestStaleGenerationDiscarded(t *testing.T) {
	bookmarks := []types.Bookmark{testBookmark("1", "electric cars")}
	started := make(chan struct{})
	release := make(chan struct{})
	reranker := &mockReranker{
		rerankFunc: func(ctx context.Context, query string, candidates []types.Candidate) ([]string, error) {
			if query == "electric" {
				close(started)
				<-release
			}
			return []string{"1"}, nil
		},
	}
	o := setupOrchestrator(t, bookmarks, reranker, WithDebounce(time.Millisecond))

	o.SetQuery("electric")
	<-started

	// A newer submission supersedes the in-flight run.
	res, err := o.Search(context.Background(), "electric cars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)

	if res.Query != "electric cars" {
		t.Fatalf("expected current query result, got %q", res.Query)
	}

	select {
	case got := <-o.Results():
		if got.Query != "electric cars" {
			t.Errorf("stale result leaked onto the channel: %q", got.Query)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the current result on the channel")
	}

	// The late run from the superseded generation must not surface.
	time.Sleep(50 * time.Millisecond)
	select {
	case got := <-o.Results():
		t.Errorf("unexpected late result: %q", got.Query)
	default:
	}
}

func TestWatchRecomputesLastQuery(t *testing.T) {
	bookmarks := []types.Bookmark{testBookmark("1", "electric cars")}
	reranker := &mockReranker{
		rerankFunc: func(ctx context.Context, query string, candidates []types.Candidate) ([]string, error) {
			return []string{"1"}, nil
		},
	}
	o := setupOrchestrator(t, bookmarks, reranker, WithDebounce(time.Millisecond))

	if _, err := o.Search(context.Background(), "electric cars"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-o.Results()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan string, 1)
	go o.Watch(ctx, changes)

	changes <- "bookmark_1"

	select {
	case res := <-o.Results():
		if res.Query != "electric cars" {
			t.Errorf("expected recompute of last query, got %q", res.Query)
		}
		if res.Generation < 2 {
			t.Errorf("expected a fresh generation, got %d", res.Generation)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change-driven recompute")
	}
}
