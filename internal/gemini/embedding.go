package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// embedContentResponse mirrors the embedContent wire format.
type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// ComputeHash computes the SHA-256 hash of a text for cache keying.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Embedding returns the semantic vector for a text. A nil vector with a
// nil error means the model returned nothing usable; callers treat that as
// a non-fatal "unavailable" signal. Results are cached by content hash.
func (c *Client) Embedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", errPermanent)
	}

	hash := ComputeHash(text)
	if vec, ok := c.cache.Get(hash); ok {
		return copyVector(vec), nil
	}

	req := map[string]interface{}{
		"model": "models/" + EmbeddingModel,
		"content": map[string]interface{}{
			"parts": []map[string]string{{"text": text}},
		},
	}

	config := DefaultRetryConfig()
	vec, err := retryWithBackoff(ctx, config, func() ([]float32, error) {
		var resp embedContentResponse
		if err := c.post(ctx, EmbeddingModel, "embedContent", req, &resp); err != nil {
			return nil, err
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	if len(vec) == 0 {
		// Unavailable, not an error
		return nil, nil
	}

	c.cache.Add(hash, copyVector(vec))
	return vec, nil
}

// copyVector returns a copy so cache entries cannot be mutated by callers.
func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
