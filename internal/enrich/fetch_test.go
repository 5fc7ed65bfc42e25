package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsRestricted(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"chrome://settings", true},
		{"chrome-extension://abc/popup.html", true},
		{"about:blank", true},
		{"file:///etc/hosts", true},
		{"javascript:void(0)", true},
		{"https://chromewebstore.google.com/detail/xyz", true},
		{"https://example.com", false},
		{"http://example.com/chrome", false},
	}

	for _, tt := range tests {
		if got := IsRestricted(tt.url); got != tt.want {
			t.Errorf("IsRestricted(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestExtractText(t *testing.T) {
	html := `<html><head>
		<style>body { color: red; }</style>
		<script>console.log("noise");</script>
	</head><body>
		<h1>Electric   Cars</h1>
		<p>A &amp; B review.</p>
		<noscript>enable js</noscript>
	</body></html>`

	got := extractText(html)

	if strings.Contains(got, "console.log") || strings.Contains(got, "color: red") {
		t.Errorf("script/style content leaked: %q", got)
	}
	if strings.Contains(got, "enable js") {
		t.Errorf("noscript content leaked: %q", got)
	}
	if !strings.Contains(got, "Electric Cars") {
		t.Errorf("expected collapsed heading text, got %q", got)
	}
	if !strings.Contains(got, "A & B review.") {
		t.Errorf("expected entities unescaped, got %q", got)
	}
}

func TestExtractTextCapsLength(t *testing.T) {
	long := "<p>" + strings.Repeat("word ", 10000) + "</p>"
	if got := extractText(long); len(got) > maxFetchedContent {
		t.Errorf("expected text capped at %d, got %d", maxFetchedContent, len(got))
	}
}

func TestFetchContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a user agent")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>hello world</body></html>")
	}))
	defer srv.Close()

	text, err := fetchContent(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", text)
	}
}

func TestFetchContentRejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	}))
	defer srv.Close()

	if _, err := fetchContent(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("expected error for non-HTML content type")
	}
}

func TestFetchContentRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := fetchContent(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestFetchContentRejectsEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><script>only noise</script></body></html>")
	}))
	defer srv.Close()

	if _, err := fetchContent(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("expected error for page with no text")
	}
}
