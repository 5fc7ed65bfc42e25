package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mstanton/lumina/pkg/types"
)

// Rerank asks the generative model to order candidate bookmarks by
// relevance to the query, most relevant first. Ids in the response are
// normalized to strings regardless of how the model typed them; the caller
// is still responsible for deduplication and membership validation.
func (c *Client) Rerank(ctx context.Context, query string, candidates []types.Candidate) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, cand := range candidates {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		fmt.Fprintf(&sb, "ID: %s\nTitle: %s\nURL: %s\nSummary: %s", cand.ID, cand.Title, cand.URL, cand.Summary)
	}

	prompt := fmt.Sprintf(`You are a search ranking expert.
User Query: %q

Candidate Bookmarks:
%s

Task: Rank these bookmarks by relevance to the user's query.
CRITICAL:
1. Understand the USER INTENT. "购买电车" means "Buy Electric Car".
2. Prioritize bookmarks that are DIRECTLY related to the intent (e.g., Tesla, EV manufacturers, car reviews).
3. Handle CROSS-LINGUAL matches intelligently. If the query is Chinese ("电车") and the bookmark is English ("Tesla Model Y"), it IS a match.
4. Downrank irrelevant items even if they have high keyword overlap (e.g., a generic store page vs the specific product page).

Return a JSON object with a "rankedIds" array containing the IDs of the candidates sorted by relevance (most relevant first).
Include ALL candidate IDs in the output, sorted.

JSON Response:`, query, sb.String())

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("reranking failed: %w", err)
	}

	// The model frequently returns numeric ids even though candidate ids
	// are strings; decode loosely and stringify.
	var parsed struct {
		RankedIDs []json.RawMessage `json:"rankedIds"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	ids := make([]string, 0, len(parsed.RankedIDs))
	for _, raw := range parsed.RankedIDs {
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			ids = append(ids, asString)
			continue
		}
		var asNumber json.Number
		if err := json.Unmarshal(raw, &asNumber); err == nil {
			ids = append(ids, asNumber.String())
			continue
		}
		// Unusable entry (object, array, bool); skip it rather than fail
		// the whole ordering.
	}

	return ids, nil
}
