package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// URLOnlyPrefix marks content that is just a URL because page fetching
// failed or the URL scheme is restricted. The summarizer then describes
// the page from the URL alone.
const URLOnlyPrefix = "URL_ONLY_MODE: "

// maxSummarizeContent caps the page text sent to the model.
const maxSummarizeContent = 15000

// Analysis is the structured enrichment the model produces for one page.
type Analysis struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	// Keywords is a free-text string of synonyms, related concepts, and
	// translations that broadens lexical search.
	Keywords string `json:"keywords"`
}

// languageNames maps configured language codes to the names used in
// prompts.
var languageNames = map[string]string{
	"en":    "English",
	"zh":    "Chinese (Simplified)",
	"zh-TW": "Chinese (Traditional)",
	"vi":    "Vietnamese",
	"es":    "Spanish",
	"fr":    "French",
	"ja":    "Japanese",
	"ko":    "Korean",
}

// Summarize analyzes page content and returns a summary, tags, and a
// search-keyword string in the target language. Content carrying
// URLOnlyPrefix is summarized from the URL alone.
func (c *Client) Summarize(ctx context.Context, content, targetLang string) (*Analysis, error) {
	langName, ok := languageNames[targetLang]
	if !ok {
		langName = "English"
	}

	isURLMode := strings.HasPrefix(content, URLOnlyPrefix)
	actual := content
	if isURLMode {
		actual = strings.TrimPrefix(content, URLOnlyPrefix)
	} else if len(actual) > maxSummarizeContent {
		actual = actual[:maxSummarizeContent]
	}

	var task string
	if isURLMode {
		task = fmt.Sprintf(`I cannot fetch the content of this webpage, but here is the URL: %q.
Please use your internal knowledge to summarize what this website or page is likely about based on the URL.`, actual)
	} else {
		task = fmt.Sprintf("1. Analyze the content and provide a concise summary (max 2 sentences) in %s.", langName)
	}

	prompt := fmt.Sprintf(`You are a helpful assistant that summarizes web pages for a bookmark manager.

%s

2. Provide 5-10 relevant tags (in %s).
3. IMPORTANT: Generate a "keywords" string that includes synonyms, related concepts, and translations (English <-> %s) to aid search.
4. Return the response in this JSON format:
   {
     "summary": "Summary in %s...",
     "tags": ["tag1", "tag2"],
     "keywords": "synonyms related terms translations..."
   }

Content:
%s`, task, langName, langName, langName, actual)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(stripFences(text)), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return &analysis, nil
}
