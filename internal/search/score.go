package search

import "time"

// Scoring and pipeline tuning constants. Candidate qualification and
// fallback scoring deliberately use different term splits and thresholds;
// see the package documentation before reconciling them.
const (
	// MinQueryLength is the shortest query that triggers the pipeline.
	MinQueryLength = 2

	// MaxCandidates bounds the pool sent to the rate-limited reranker.
	MaxCandidates = 15

	// goodSemanticScore is the retention threshold for the semantic score
	// map: similarities at or below it are treated as noise and dropped.
	goodSemanticScore = 0.15

	// candidateSemanticFloor qualifies a bookmark for the candidate pool
	// on semantic signal alone.
	candidateSemanticFloor = 0.05

	// Fallback score weights.
	exactPhraseScore = 100.0
	allTermsScore    = 50.0
	partialTermsMax  = 30.0
	semanticWeight   = 50.0

	// noiseFloor excludes bookmarks from fallback results; scores must be
	// strictly greater to be shown.
	noiseFloor = 5.0

	// DefaultDebounce is the quiet interval before a submitted query
	// starts a pipeline run.
	DefaultDebounce = 800 * time.Millisecond
)
