package search

import (
	"sort"
	"strings"

	"github.com/mstanton/lumina/pkg/types"
)

// FallbackRank scores every bookmark with the local blended scorer and
// returns those above the noise floor in descending score order, plus the
// score map keyed by store key. The blend is intentional: exact phrase
// dominates, full term coverage is second, and partial coverage and
// semantic similarity contribute smaller additive signals, so keyword
// precision is never fully overridden by a noisy embedding.
//
// Unlike candidate qualification, the term split here keeps every
// non-empty term, including single characters.
func FallbackRank(query string, bookmarks []types.Bookmark, metadata map[string]*types.Metadata, semanticScores map[string]float64) ([]types.Bookmark, map[string]float64) {
	lowerQuery := strings.ToLower(query)
	terms := strings.Fields(lowerQuery)

	type scored struct {
		bookmark types.Bookmark
		score    float64
	}

	matchScores := make(map[string]float64, len(bookmarks))
	kept := make([]scored, 0, len(bookmarks))

	for _, b := range bookmarks {
		key := types.MetadataKey(b.ID)
		title, summary, keywords := searchFields(b, metadata[key])
		fullText := title + " " + summary + " " + keywords

		var matchScore float64

		// Exact phrase dominates
		if strings.Contains(fullText, lowerQuery) {
			matchScore += exactPhraseScore
		}

		// Term coverage bonus
		if len(terms) > 0 {
			matched := 0
			for _, term := range terms {
				if strings.Contains(fullText, term) {
					matched++
				}
			}
			if matched == len(terms) {
				matchScore += allTermsScore
			} else if matched > 0 {
				matchScore += partialTermsMax * float64(matched) / float64(len(terms))
			}
		}

		// Semantic bonus, scaled onto the lexical range
		matchScore += semanticScores[key] * semanticWeight

		matchScores[key] = matchScore
		if matchScore > noiseFloor {
			kept = append(kept, scored{bookmark: b, score: matchScore})
		}
	}

	// Stable: ties preserve original bookmark order
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})

	result := make([]types.Bookmark, len(kept))
	for i, s := range kept {
		result[i] = s.bookmark
	}
	return result, matchScores
}
