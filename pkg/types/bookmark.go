package types

import "time"

// Bookmark represents a single url-bearing node from the browser bookmark
// tree. Bookmarks are immutable for the lifetime of a loaded snapshot.
type Bookmark struct {
	ID        string // Stable, unique per bookmark
	Title     string
	URL       string
	DateAdded time.Time
}

// Status describes the enrichment state of a bookmark's metadata record.
type Status string

const (
	StatusPending Status = "pending"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Metadata is the enrichment record for one bookmark, produced by the
// background enricher and read by the search pipeline.
type Metadata struct {
	Status   Status
	Summary  string
	Tags     []string
	Keywords string // Free-text synonyms/translations used for lexical matching
	// Embedding is the semantic vector for the enriched content.
	// Nil when embedding generation failed or has not run yet.
	Embedding []float32
	// Error holds the failure reason, present only when Status is StatusError.
	Error       string
	Language    string
	LastUpdated time.Time
}

// MetadataKey returns the store key for a bookmark id ("bookmark_<id>").
func MetadataKey(id string) string {
	return "bookmark_" + id
}

// Validate checks if the metadata record is internally consistent.
func (m *Metadata) Validate() error {
	switch m.Status {
	case StatusPending, StatusLoading, StatusSuccess, StatusError:
	default:
		return ErrInvalidStatus
	}

	if m.Status == StatusError && m.Error == "" {
		return ErrMissingError
	}

	return nil
}

// Candidate is the projection of a bookmark plus its metadata submitted to
// the reranking service. Summary may be empty when enrichment has not
// completed for the bookmark.
type Candidate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}
