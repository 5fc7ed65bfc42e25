package search

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/mstanton/lumina/pkg/types"
)

// EmbeddingProvider supplies query embeddings. A nil vector with a nil
// error is a valid "unavailable" signal.
type EmbeddingProvider interface {
	Embedding(ctx context.Context, text string) ([]float32, error)
}

// Reranker orders a small candidate set by relevance, most relevant first.
// The returned ids may contain extras, omissions, or duplicates; callers
// normalize before trusting the order. Failure is a normal, expected
// outcome handled by falling back to local scoring.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []types.Candidate) ([]string, error)
}

// MetadataReader provides read-only snapshots of the enrichment metadata.
type MetadataReader interface {
	Snapshot(ctx context.Context) (map[string]*types.Metadata, error)
}

// BookmarkSource provides the ordered bookmark snapshot to search over.
type BookmarkSource interface {
	Bookmarks() []types.Bookmark
}

// Orchestrator coordinates the search pipeline: embedding retrieval,
// candidate selection, reranking, and fallback scoring. It owns query
// debouncing and generation tracking so results from superseded queries
// never overwrite newer state.
type Orchestrator struct {
	source   BookmarkSource
	store    MetadataReader
	embedder EmbeddingProvider
	reranker Reranker

	debounce   time.Duration
	credential func() bool
	logger     *log.Logger

	// gen is the monotonic query generation. Bumped on every submission;
	// a pipeline result is committed only if its generation is still
	// current.
	gen atomic.Uint64

	mu        sync.Mutex
	timer     *time.Timer
	lastQuery string

	results chan *types.SearchResult
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDebounce overrides the quiet interval before a submitted query runs.
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) { o.debounce = d }
}

// WithCredentialCheck sets the predicate deciding whether an API
// credential is configured. Without one the pipeline short-circuits to the
// unfiltered bookmark list.
func WithCredentialCheck(f func() bool) Option {
	return func(o *Orchestrator) { o.credential = f }
}

// WithLogger overrides the orchestrator's logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates a search orchestrator over the given
// collaborators.
func NewOrchestrator(source BookmarkSource, store MetadataReader, embedder EmbeddingProvider, reranker Reranker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:     source,
		store:      store,
		embedder:   embedder,
		reranker:   reranker,
		debounce:   DefaultDebounce,
		credential: func() bool { return true },
		logger:     log.Default(),
		results:    make(chan *types.SearchResult, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search runs one pipeline immediately, without debouncing. It supersedes
// any in-flight debounced query. The returned result is also delivered on
// the Results channel unless a newer submission has started since.
func (o *Orchestrator) Search(ctx context.Context, query string) (*types.SearchResult, error) {
	gen := o.gen.Add(1)
	o.mu.Lock()
	o.lastQuery = query
	if o.timer != nil {
		o.timer.Stop()
	}
	o.mu.Unlock()

	res := o.run(ctx, gen, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.commit(res)
	return res, nil
}

// SetQuery submits a query from interactive input. Submissions within the
// debounce window coalesce; only the last one starts a pipeline. The
// settled result is delivered on the Results channel.
func (o *Orchestrator) SetQuery(query string) {
	gen := o.gen.Add(1)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastQuery = query
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.debounce, func() {
		if gen != o.gen.Load() {
			return // Superseded during the quiet interval
		}
		res := o.run(context.Background(), gen, query)
		o.commit(res)
	})
}

// Results delivers settled pipeline outcomes, latest wins: if the consumer
// is behind, superseded results are dropped rather than queued.
func (o *Orchestrator) Results() <-chan *types.SearchResult {
	return o.results
}

// Watch re-runs the last submitted query whenever the metadata store
// reports a change, picking up enrichment results as they arrive. Blocks
// until ctx is done or the change channel closes. In-flight pipelines are
// not interrupted; the recompute is a fresh debounced generation.
func (o *Orchestrator) Watch(ctx context.Context, changes <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			o.mu.Lock()
			query := o.lastQuery
			o.mu.Unlock()
			if query == "" {
				continue
			}
			o.SetQuery(query)
		}
	}
}

// run executes one full pipeline for a query generation. External failures
// degrade the result rather than aborting it: the caller always receives
// ranked, fallback-ranked, or explicitly unfiltered bookmarks.
func (o *Orchestrator) run(ctx context.Context, gen uint64, query string) *types.SearchResult {
	res := &types.SearchResult{
		Query:          query,
		Generation:     gen,
		SemanticScores: map[string]float64{},
	}

	bookmarks := o.source.Bookmarks()

	// Short query or missing credential: neutral state, show everything.
	if utf8.RuneCountInString(query) < MinQueryLength || !o.credential() {
		res.Outcome = types.OutcomeShowAll
		res.Bookmarks = bookmarks
		return res
	}

	metadata, err := o.store.Snapshot(ctx)
	if err != nil {
		o.logger.Printf("search: metadata snapshot failed: %v", err)
		metadata = map[string]*types.Metadata{}
	}

	// Embedding failure is non-fatal: an empty score map makes candidate
	// selection purely lexical.
	queryVec, err := o.embedder.Embedding(ctx, query)
	if err != nil {
		o.logger.Printf("search: query embedding failed, falling back to keyword matching: %v", err)
	}
	scores := SemanticScores(queryVec, metadata)
	res.SemanticScores = scores

	candidates := SelectCandidates(query, bookmarks, metadata, scores)

	if len(candidates) > 0 && o.reranker != nil {
		ids, err := o.reranker.Rerank(ctx, query, candidates)
		if err != nil {
			o.logger.Printf("search: reranking failed: %v", err)
			res.RerankError = err.Error()
		} else if ordered := NormalizeRanking(ids, candidates); len(ordered) > 0 {
			// The reranked ordering is authoritative: bookmarks it omits
			// are excluded from the visible result.
			res.Outcome = types.OutcomeReranked
			res.Bookmarks = applyRanking(ordered, bookmarks)
			return res
		} else {
			o.logger.Printf("search: reranking returned no usable ordering for %q", query)
		}
	}

	res.Outcome = types.OutcomeFallback
	res.Bookmarks, res.MatchScores = FallbackRank(query, bookmarks, metadata, scores)
	return res
}

// commit publishes a settled result unless its generation has been
// superseded. Late results from older generations are discarded here,
// which is the only stale-state guard the pipeline needs.
func (o *Orchestrator) commit(res *types.SearchResult) {
	if res.Generation != o.gen.Load() {
		return
	}
	for {
		select {
		case o.results <- res:
			return
		default:
		}
		select {
		case <-o.results:
		default:
		}
	}
}
