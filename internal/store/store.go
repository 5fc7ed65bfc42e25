package store

import (
	"context"
	"errors"

	"github.com/mstanton/lumina/pkg/types"
)

var (
	// ErrNotFound is returned when a requested metadata record doesn't exist
	ErrNotFound = errors.New("not found")
)

// Store defines the interface for persisting and querying bookmark
// enrichment metadata. The enricher is the only writer; the search
// pipeline reads immutable snapshots.
type Store interface {
	// Put upserts the metadata record for a bookmark id and notifies
	// subscribers.
	Put(ctx context.Context, id string, meta *types.Metadata) error

	// Get retrieves the metadata record for a bookmark id.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, id string) (*types.Metadata, error)

	// Snapshot returns all metadata records keyed by store key
	// ("bookmark_<id>"). The returned map is owned by the caller and is
	// never mutated by the store afterwards.
	Snapshot(ctx context.Context) (map[string]*types.Metadata, error)

	// Delete removes the metadata record for a bookmark id and notifies
	// subscribers. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// CountByStatus returns the number of records per enrichment status.
	CountByStatus(ctx context.Context) (map[types.Status]int, error)

	// Subscribe returns a channel receiving the store key of every record
	// that changes. Slow subscribers miss notifications rather than block
	// writers.
	Subscribe() <-chan string

	// Unsubscribe removes a previously subscribed channel and closes it.
	Unsubscribe(ch <-chan string)

	// Close releases the underlying database
	Close() error
}
