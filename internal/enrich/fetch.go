package enrich

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// maxFetchedContent caps the extracted page text.
const maxFetchedContent = 20000

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 2 << 20

// Restricted URL schemes and hosts that cannot be fetched.
var restrictedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"about:",
	"file://",
	"javascript:",
}

// IsRestricted reports whether a URL must not be fetched.
func IsRestricted(url string) bool {
	for _, prefix := range restrictedPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return strings.Contains(url, "chromewebstore.google.com")
}

var (
	// Noise elements removed wholesale before tag stripping
	noiseBlockPattern = regexp.MustCompile(`(?is)<(script|style|noscript|iframe|svg)\b[^>]*>.*?</\s*(script|style|noscript|iframe|svg)\s*>`)
	tagPattern        = regexp.MustCompile(`(?s)<[^>]*>`)
)

// extractText strips noise elements and tags from HTML and collapses
// whitespace, approximating the rendered text of the page body.
func extractText(htmlBody string) string {
	text := noiseBlockPattern.ReplaceAllString(htmlBody, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxFetchedContent {
		text = text[:maxFetchedContent]
	}
	return text
}

// fetchContent retrieves a page and returns its extracted text. Errors and
// non-HTML responses yield an error; the caller falls back to URL-only
// summarization.
func fetchContent(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Lumina/1.0 (bookmark enrichment)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") && !strings.Contains(contentType, "text/plain") {
		return "", fmt.Errorf("fetch %s: unsupported content type %s", url, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	text := extractText(string(body))
	if text == "" {
		return "", fmt.Errorf("fetch %s: no text content", url)
	}
	return text, nil
}
