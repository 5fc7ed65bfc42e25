package types

// Outcome identifies which path of the search pipeline produced a result.
type Outcome string

const (
	// OutcomeReranked means the external reranker returned a usable ordering
	// and that ordering is authoritative.
	OutcomeReranked Outcome = "reranked"
	// OutcomeFallback means the local fallback scorer produced the ordering.
	OutcomeFallback Outcome = "fallback"
	// OutcomeShowAll means the query was too short or no API key is
	// configured; the full bookmark list is returned unfiltered.
	OutcomeShowAll Outcome = "show_all"
)

// SearchResult is the settled output of one search pipeline generation.
type SearchResult struct {
	Query      string
	Generation uint64
	Outcome    Outcome

	// Bookmarks is the relevance-ordered result list. Ids are always a
	// subset of the bookmark snapshot the pipeline ran against, with no
	// duplicates.
	Bookmarks []Bookmark

	// SemanticScores maps metadata store keys to cosine similarity against
	// the query embedding. Only scores above the retention threshold are
	// present; empty when the embedding call failed.
	SemanticScores map[string]float64

	// MatchScores holds the fallback scorer's blended score per store key.
	// Populated only for OutcomeFallback.
	MatchScores map[string]float64

	// RerankError carries the user-facing reranking failure message when
	// the reranker errored and the fallback path was taken. Empty otherwise.
	RerankError string
}

// Validate checks the result invariants against the bookmark set the
// pipeline ran over.
func (sr *SearchResult) Validate(known map[string]bool) error {
	seen := make(map[string]bool, len(sr.Bookmarks))
	for _, b := range sr.Bookmarks {
		if !known[b.ID] {
			return ErrUnknownBookmark
		}
		if seen[b.ID] {
			return ErrDuplicateBookmark
		}
		seen[b.ID] = true
	}
	return nil
}
