package enrich

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mstanton/lumina/internal/gemini"
	"github.com/mstanton/lumina/internal/store"
	"github.com/mstanton/lumina/pkg/types"
)

// Analyzer is the LLM capability the enricher consumes: summarization and
// embedding generation.
type Analyzer interface {
	Summarize(ctx context.Context, content, targetLang string) (*gemini.Analysis, error)
	Embedding(ctx context.Context, text string) ([]float32, error)
}

// BookmarkGetter resolves bookmark ids against the current snapshot.
type BookmarkGetter interface {
	Bookmarks() []types.Bookmark
	Get(id string) (types.Bookmark, bool)
}

// Stats summarizes a batch enrichment run.
type Stats struct {
	Processed int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// Enricher runs the background enrichment pipeline: fetch page content,
// summarize, embed, and persist metadata. The metadata store is the
// hand-off point to the search pipeline.
type Enricher struct {
	source   BookmarkGetter
	store    store.Store
	analyzer Analyzer

	language   string
	workers    int
	delay      time.Duration
	httpClient *http.Client
	logger     *log.Logger

	// throttle serializes the inter-request delay across workers
	throttleMu sync.Mutex
	nextCall   time.Time

	// queue feeds Run with bookmark ids from discovery events
	queue chan string
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithWorkers sets the number of concurrent enrichment workers.
func WithWorkers(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithDelay sets the minimum interval between LLM calls. The free Gemini
// tier allows roughly 15 requests per minute.
func WithDelay(d time.Duration) EnricherOption {
	return func(e *Enricher) { e.delay = d }
}

// WithHTTPClient overrides the page-fetch HTTP client.
func WithHTTPClient(hc *http.Client) EnricherOption {
	return func(e *Enricher) { e.httpClient = hc }
}

// WithLogger overrides the enricher's logger.
func WithLogger(l *log.Logger) EnricherOption {
	return func(e *Enricher) { e.logger = l }
}

// New creates an Enricher.
func New(source BookmarkGetter, st store.Store, analyzer Analyzer, language string, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		source:   source,
		store:    st,
		analyzer: analyzer,
		language: language,
		workers:  1,
		delay:    4 * time.Second,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log.Default(),
		queue:  make(chan string, 256),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// throttle blocks until the next LLM call slot, honoring the configured
// inter-request delay across all workers.
func (e *Enricher) throttle(ctx context.Context) error {
	if e.delay <= 0 {
		return nil
	}

	e.throttleMu.Lock()
	now := time.Now()
	wait := e.nextCall.Sub(now)
	if wait < 0 {
		wait = 0
	}
	e.nextCall = now.Add(wait + e.delay)
	e.throttleMu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// Process enriches a single bookmark: mark loading, fetch content (URL-only
// fallback when fetching fails), summarize, embed, and store the result.
// Failures are recorded as error metadata, not returned, except for
// storage failures and context cancellation.
func (e *Enricher) Process(ctx context.Context, b types.Bookmark) error {
	e.logger.Printf("enrich: processing bookmark %s (%s)", b.ID, b.URL)

	if err := e.store.Put(ctx, b.ID, &types.Metadata{
		Status:      types.StatusLoading,
		Language:    e.language,
		LastUpdated: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to mark bookmark %s loading: %w", b.ID, err)
	}

	content := e.loadContent(ctx, b.URL)

	if err := e.throttle(ctx); err != nil {
		return err
	}

	analysis, err := e.analyzer.Summarize(ctx, content, e.language)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Printf("enrich: summarization failed for bookmark %s: %v", b.ID, err)
		return e.storeError(ctx, b.ID, "AI Error")
	}

	// Embed the summary, keywords, and tags together so the vector covers
	// synonyms and translations, not just the summary wording.
	textToEmbed := strings.TrimSpace(analysis.Summary + " " + analysis.Keywords + " " + strings.Join(analysis.Tags, " "))
	embedding, err := e.analyzer.Embedding(ctx, textToEmbed)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Non-fatal: the record is still lexically searchable
		e.logger.Printf("enrich: embedding failed for bookmark %s: %v", b.ID, err)
	}

	return e.store.Put(ctx, b.ID, &types.Metadata{
		Status:      types.StatusSuccess,
		Summary:     analysis.Summary,
		Tags:        analysis.Tags,
		Keywords:    analysis.Keywords,
		Embedding:   embedding,
		Language:    e.language,
		LastUpdated: time.Now().UTC(),
	})
}

// loadContent fetches the page text, degrading to URL-only mode for
// restricted or unfetchable pages.
func (e *Enricher) loadContent(ctx context.Context, url string) string {
	if IsRestricted(url) {
		return gemini.URLOnlyPrefix + url
	}
	content, err := fetchContent(ctx, e.httpClient, url)
	if err != nil {
		e.logger.Printf("enrich: content fetch failed, summarizing URL directly: %v", err)
		return gemini.URLOnlyPrefix + url
	}
	return content
}

func (e *Enricher) storeError(ctx context.Context, id, msg string) error {
	return e.store.Put(ctx, id, &types.Metadata{
		Status:      types.StatusError,
		Error:       msg,
		Language:    e.language,
		LastUpdated: time.Now().UTC(),
	})
}

// ProcessBatch enriches the given bookmark ids with the configured worker
// pool. Unknown ids are skipped, as are already-enriched bookmarks unless
// force is set. Per-bookmark failures are recorded in the store and
// counted, not propagated; the returned error covers only cancellation and
// storage breakage.
func (e *Enricher) ProcessBatch(ctx context.Context, ids []string, force bool) (*Stats, error) {
	start := time.Now()
	var processed, failed, skipped int32

	semaphore := make(chan struct{}, e.workers)
	g, gctx := errgroup.WithContext(ctx)

	for _, id := range ids {
		b, ok := e.source.Get(id)
		if !ok || b.URL == "" {
			skipped++
			continue
		}
		if !force && e.isEnriched(ctx, id) {
			skipped++
			continue
		}

		g.Go(func() error {
			select {
			case semaphore <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-semaphore }()

			if err := e.Process(gctx, b); err != nil {
				if gctx.Err() != nil {
					return err
				}
				atomic.AddInt32(&failed, 1)
				e.logger.Printf("enrich: bookmark %s failed: %v", b.ID, err)
				return nil
			}
			atomic.AddInt32(&processed, 1)
			return nil
		})
	}

	err := g.Wait()
	return &Stats{
		Processed: int(atomic.LoadInt32(&processed)),
		Failed:    int(atomic.LoadInt32(&failed)),
		Skipped:   int(skipped),
		Duration:  time.Since(start),
	}, err
}

// ProcessAll enriches every bookmark in the current snapshot.
func (e *Enricher) ProcessAll(ctx context.Context, force bool) (*Stats, error) {
	bookmarks := e.source.Bookmarks()
	ids := make([]string, len(bookmarks))
	for i, b := range bookmarks {
		ids[i] = b.ID
	}
	return e.ProcessBatch(ctx, ids, force)
}

// isEnriched reports whether a bookmark already has a successful record.
func (e *Enricher) isEnriched(ctx context.Context, id string) bool {
	meta, err := e.store.Get(ctx, id)
	return err == nil && meta.Status == types.StatusSuccess
}

// Queue submits a bookmark id for background enrichment. Returns false
// when the queue is full or Run is not draining it.
func (e *Enricher) Queue(id string) bool {
	select {
	case e.queue <- id:
		return true
	default:
		return false
	}
}

// Run drains the queue until ctx is done, enriching queued bookmarks one
// at a time. Already-enriched ids are skipped, so discovery events can
// queue liberally.
func (e *Enricher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-e.queue:
			b, ok := e.source.Get(id)
			if !ok || b.URL == "" || e.isEnriched(ctx, id) {
				continue
			}
			if err := e.Process(ctx, b); err != nil {
				if ctx.Err() != nil {
					return
				}
				e.logger.Printf("enrich: queued bookmark %s failed: %v", id, err)
			}
		}
	}
}
