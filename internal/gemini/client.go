package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Model configuration
const (
	// GenerativeModel is used for summarization and reranking
	GenerativeModel = "gemini-2.5-flash"
	// EmbeddingModel produces semantic vectors
	EmbeddingModel = "text-embedding-004"
	// EmbeddingDimension is the vector size of EmbeddingModel
	EmbeddingDimension = 768

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// defaultCacheSize bounds the embedding LRU cache
	defaultCacheSize = 10000
)

// Common errors. The search pipeline distinguishes safety rejections and
// malformed model output for user-facing messaging; everything else is a
// generic failure.
var (
	ErrNoAPIKey      = errors.New("gemini API key not configured")
	ErrSafetyBlocked = errors.New("AI blocked content due to safety settings")
	ErrInvalidJSON   = errors.New("AI returned invalid JSON")
	ErrEmptyResponse = errors.New("AI returned empty response")
)

// SanitizeAPIKey strips non-ASCII characters (hidden spaces, newlines from
// copy/paste) that break HTTP header encoding, and trims whitespace.
func SanitizeAPIKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Client calls the Gemini REST API for embeddings, summarization, and
// reranking.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *lru.Cache[string, []float32]
	logger     *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger overrides the client's logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Gemini client. The key is sanitized before use.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	apiKey = SanitizeAPIKey(apiKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cache, err := lru.New[string, []float32](defaultCacheSize)
	if err != nil {
		// Only fails on a non-positive size
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		cache:  cache,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// post sends a JSON request to a model endpoint and decodes the response
// into out. Status 429 and 5xx map to retryable errors, everything else
// non-2xx is permanent.
func (c *Client) post(ctx context.Context, model, method string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, method)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
		}
		return fmt.Errorf("%w: api error %d: %s", errPermanent, resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// generateContentResponse mirrors the subset of the generateContent wire
// format the client consumes.
type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// generate sends a prompt to the generative model and returns the raw text
// of the first candidate. Safety rejections surface as ErrSafetyBlocked.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	req := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	config := DefaultRetryConfig()
	return retryWithBackoff(ctx, config, func() (string, error) {
		var resp generateContentResponse
		if err := c.post(ctx, GenerativeModel, "generateContent", req, &resp); err != nil {
			return "", err
		}

		if resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: %s", ErrSafetyBlocked, resp.PromptFeedback.BlockReason)
		}
		if len(resp.Candidates) == 0 {
			return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
		}
		if resp.Candidates[0].FinishReason == "SAFETY" {
			return "", ErrSafetyBlocked
		}

		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
		if text.Len() == 0 {
			return "", ErrEmptyResponse
		}
		return text.String(), nil
	})
}

// stripFences removes markdown code fences the model wraps around JSON
// output.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
