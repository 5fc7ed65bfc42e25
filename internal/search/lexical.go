package search

import (
	"strings"

	"github.com/mstanton/lumina/pkg/types"
)

// LexicalMatch reports phrase and term overlap between a query and one
// bookmark's searchable text fields.
type LexicalMatch struct {
	// ExactPhrase is true if the full lowercased query appears as a
	// substring of the title, summary, or keywords.
	ExactPhrase bool
	// AllTerms is true if every query term appears in some field.
	AllTerms bool
	// TermCoverage is the fraction of query terms found across the
	// combined fields, in [0,1].
	TermCoverage float64
}

// QueryTerms splits a lowercased query on whitespace for candidate
// qualification, dropping single-character terms.
func QueryTerms(lowerQuery string) []string {
	fields := strings.Fields(lowerQuery)
	terms := make([]string, 0, len(fields))
	for _, t := range fields {
		if len(t) > 1 {
			terms = append(terms, t)
		}
	}
	return terms
}

// searchFields returns the lowercased title, summary, and keywords for a
// bookmark. Summary and keywords are empty when no metadata exists.
func searchFields(b types.Bookmark, meta *types.Metadata) (title, summary, keywords string) {
	title = strings.ToLower(b.Title)
	if meta != nil {
		summary = strings.ToLower(meta.Summary)
		keywords = strings.ToLower(meta.Keywords)
	}
	return title, summary, keywords
}

// MatchLexical evaluates a lowercased query and its term list against one
// bookmark's fields. Pure text operations, no external calls.
func MatchLexical(lowerQuery string, terms []string, title, summary, keywords string) LexicalMatch {
	m := LexicalMatch{
		ExactPhrase: strings.Contains(title, lowerQuery) ||
			strings.Contains(summary, lowerQuery) ||
			strings.Contains(keywords, lowerQuery),
	}

	if len(terms) == 0 {
		// Vacuously true: no terms survived filtering.
		m.AllTerms = true
		return m
	}

	matched := 0
	for _, term := range terms {
		if strings.Contains(title, term) || strings.Contains(summary, term) || strings.Contains(keywords, term) {
			matched++
		}
	}

	m.TermCoverage = float64(matched) / float64(len(terms))
	m.AllTerms = matched == len(terms)
	return m
}
