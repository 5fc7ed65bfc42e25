package search

import "github.com/mstanton/lumina/pkg/types"

// NormalizeRanking canonicalizes a reranker response before it is trusted.
// Ids are deduplicated first-occurrence-wins and restricted to the
// submitted candidate set; extra or repeated ids from the external service
// are dropped. An empty return means the ordering is unusable.
func NormalizeRanking(ids []string, candidates []types.Candidate) []string {
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	seen := make(map[string]bool, len(ids))
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, id)
	}
	return ordered
}

// applyRanking filters the bookmark list down to the ranked ids and orders
// it by rank position. Bookmarks absent from the ranking are excluded
// entirely, even if they scored well locally.
func applyRanking(ordered []string, bookmarks []types.Bookmark) []types.Bookmark {
	rank := make(map[string]int, len(ordered))
	for i, id := range ordered {
		rank[id] = i
	}

	result := make([]types.Bookmark, len(ordered))
	count := 0
	for _, b := range bookmarks {
		if pos, ok := rank[b.ID]; ok {
			result[pos] = b
			count++
		}
	}

	// The ranking may reference ids missing from the current bookmark set;
	// compact out the holes while preserving rank order.
	if count < len(result) {
		compacted := make([]types.Bookmark, 0, count)
		for _, b := range result {
			if b.ID != "" {
				compacted = append(compacted, b)
			}
		}
		return compacted
	}
	return result
}
