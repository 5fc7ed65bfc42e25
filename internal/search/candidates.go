package search

import (
	"sort"
	"strings"

	"github.com/mstanton/lumina/pkg/types"
)

// SemanticScores scores every metadata record against the query embedding,
// retaining only similarities above the goodSemanticScore threshold. The
// returned map is keyed by store key ("bookmark_<id>"). Records without an
// embedding are skipped.
func SemanticScores(queryVec []float32, metadata map[string]*types.Metadata) map[string]float64 {
	scores := make(map[string]float64)
	if len(queryVec) == 0 {
		return scores
	}
	for key, meta := range metadata {
		if meta == nil || meta.Embedding == nil {
			continue
		}
		if score := CosineSimilarity(queryVec, meta.Embedding); score > goodSemanticScore {
			scores[key] = score
		}
	}
	return scores
}

// scoredBookmark pairs a bookmark with its metadata and semantic score for
// candidate selection.
type scoredBookmark struct {
	bookmark types.Bookmark
	meta     *types.Metadata
	score    float64
}

// SelectCandidates builds the bounded candidate pool submitted to the
// reranker. Bookmarks are sorted by semantic score descending (stable, so
// enumeration order breaks ties), qualified by exact phrase, semantic
// score, or full term coverage, and capped at MaxCandidates.
func SelectCandidates(query string, bookmarks []types.Bookmark, metadata map[string]*types.Metadata, scores map[string]float64) []types.Candidate {
	lowerQuery := strings.ToLower(query)
	terms := QueryTerms(lowerQuery)

	scored := make([]scoredBookmark, len(bookmarks))
	for i, b := range bookmarks {
		key := types.MetadataKey(b.ID)
		scored[i] = scoredBookmark{
			bookmark: b,
			meta:     metadata[key],
			score:    scores[key],
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	candidates := make([]types.Candidate, 0, MaxCandidates)
	for _, sb := range scored {
		if !qualifies(lowerQuery, terms, sb) {
			continue
		}
		summary := ""
		if sb.meta != nil {
			summary = sb.meta.Summary
		}
		candidates = append(candidates, types.Candidate{
			ID:      sb.bookmark.ID,
			Title:   sb.bookmark.Title,
			URL:     sb.bookmark.URL,
			Summary: summary,
		})
		if len(candidates) == MaxCandidates {
			break
		}
	}

	return candidates
}

// qualifies admits a bookmark into the candidate pool if any signal fires:
// exact phrase match, semantic score above the floor, or every query term
// present across title/summary/keywords.
func qualifies(lowerQuery string, terms []string, sb scoredBookmark) bool {
	title, summary, keywords := searchFields(sb.bookmark, sb.meta)
	m := MatchLexical(lowerQuery, terms, title, summary, keywords)

	if m.ExactPhrase {
		return true
	}
	if sb.score > candidateSemanticFloor {
		return true
	}
	return m.AllTerms
}
