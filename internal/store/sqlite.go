package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mstanton/lumina/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB

	subMu sync.Mutex
	subs  []chan string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection and all subscriber channels
func (s *SQLiteStore) Close() error {
	s.subMu.Lock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	s.subMu.Unlock()
	return s.db.Close()
}

// Put upserts the metadata record for a bookmark id
func (s *SQLiteStore) Put(ctx context.Context, id string, meta *types.Metadata) error {
	if id == "" {
		return fmt.Errorf("bookmark id cannot be empty")
	}
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("invalid metadata for bookmark %s: %w", id, err)
	}

	tags, err := json.Marshal(meta.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	lastUpdated := meta.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookmark_metadata
			(bookmark_id, status, summary, tags, keywords, embedding, error, language, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bookmark_id) DO UPDATE SET
			status = excluded.status,
			summary = excluded.summary,
			tags = excluded.tags,
			keywords = excluded.keywords,
			embedding = excluded.embedding,
			error = excluded.error,
			language = excluded.language,
			last_updated = excluded.last_updated
	`, id, string(meta.Status), meta.Summary, string(tags), meta.Keywords,
		serializeVector(meta.Embedding), meta.Error, meta.Language, lastUpdated)
	if err != nil {
		return fmt.Errorf("failed to upsert metadata for bookmark %s: %w", id, err)
	}

	s.notify(types.MetadataKey(id))
	return nil
}

// Get retrieves the metadata record for a bookmark id
func (s *SQLiteStore) Get(ctx context.Context, id string) (*types.Metadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT status, summary, tags, keywords, embedding, error, language, last_updated
		FROM bookmark_metadata
		WHERE bookmark_id = ?
	`, id)

	meta, err := scanMetadata(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for bookmark %s: %w", id, err)
	}
	return meta, nil
}

// Snapshot returns all metadata records keyed by "bookmark_<id>"
func (s *SQLiteStore) Snapshot(ctx context.Context) (map[string]*types.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bookmark_id, status, summary, tags, keywords, embedding, error, language, last_updated
		FROM bookmark_metadata
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := make(map[string]*types.Metadata)
	for rows.Next() {
		var id string
		var status, summary, tags, keywords, errMsg, language string
		var embedding []byte
		var lastUpdated time.Time
		if err := rows.Scan(&id, &status, &summary, &tags, &keywords, &embedding, &errMsg, &language, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		meta, err := buildMetadata(status, summary, tags, keywords, embedding, errMsg, language, lastUpdated)
		if err != nil {
			return nil, err
		}
		snapshot[types.MetadataKey(id)] = meta
	}

	return snapshot, rows.Err()
}

// Delete removes the metadata record for a bookmark id
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bookmark_metadata WHERE bookmark_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete metadata for bookmark %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.notify(types.MetadataKey(id))
	}
	return nil
}

// CountByStatus returns the number of records per enrichment status
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[types.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM bookmark_metadata GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count metadata by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[types.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[types.Status(status)] = count
	}
	return counts, rows.Err()
}

// Subscribe returns a channel receiving the store key of every changed record
func (s *SQLiteStore) Subscribe() <-chan string {
	ch := make(chan string, 64)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes a previously subscribed channel and closes it
func (s *SQLiteStore) Unsubscribe(ch <-chan string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for i, sub := range s.subs {
		if sub == ch {
			close(sub)
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// notify delivers a change key to all subscribers without blocking writers
func (s *SQLiteStore) notify(key string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- key:
		default:
			// Subscriber is behind; it misses this notification
		}
	}
}

// scanner abstracts *sql.Row and *sql.Rows for metadata scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMetadata(row scanner) (*types.Metadata, error) {
	var status, summary, tags, keywords, errMsg, language string
	var embedding []byte
	var lastUpdated time.Time
	if err := row.Scan(&status, &summary, &tags, &keywords, &embedding, &errMsg, &language, &lastUpdated); err != nil {
		return nil, err
	}
	return buildMetadata(status, summary, tags, keywords, embedding, errMsg, language, lastUpdated)
}

func buildMetadata(status, summary, tags, keywords string, embedding []byte, errMsg, language string, lastUpdated time.Time) (*types.Metadata, error) {
	meta := &types.Metadata{
		Status:      types.Status(status),
		Summary:     summary,
		Keywords:    keywords,
		Embedding:   deserializeVector(embedding),
		Error:       errMsg,
		Language:    language,
		LastUpdated: lastUpdated,
	}
	if strings.TrimSpace(tags) != "" {
		if err := json.Unmarshal([]byte(tags), &meta.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	return meta, nil
}
