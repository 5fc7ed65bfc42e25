package bookmarks

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mstanton/lumina/pkg/types"
)

// Node is one entry in a browser bookmark tree. Folders carry children;
// only url-bearing nodes become bookmarks.
type Node struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	DateAdded string `json:"date_added"`
	Children  []Node `json:"children"`
}

// chromeFile is the top-level shape of a Chrome "Bookmarks" file.
type chromeFile struct {
	Roots map[string]Node `json:"roots"`
}

// Flatten walks a bookmark tree pre-order and returns the url-bearing
// nodes in traversal order, skipping folders.
func Flatten(nodes []Node) []types.Bookmark {
	var out []types.Bookmark
	for _, node := range nodes {
		if node.URL != "" {
			out = append(out, types.Bookmark{
				ID:        node.ID,
				Title:     node.Name,
				URL:       node.URL,
				DateAdded: parseChromeTime(node.DateAdded),
			})
		}
		if len(node.Children) > 0 {
			out = append(out, Flatten(node.Children)...)
		}
	}
	return out
}

// parseChromeTime converts Chrome's microseconds-since-1601 timestamp.
// Returns the zero time on malformed input.
func parseChromeTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	micros, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || micros == 0 {
		return time.Time{}
	}
	// Offset between the Windows epoch (1601) and the Unix epoch (1970)
	const epochDelta = 11644473600
	return time.Unix(micros/1e6-epochDelta, (micros%1e6)*1000).UTC()
}

// Source holds an ordered, immutable snapshot of the bookmark collection.
// Reload swaps the snapshot atomically; readers of an older snapshot are
// unaffected.
type Source struct {
	path string

	mu        sync.RWMutex
	bookmarks []types.Bookmark
}

// NewSource creates a bookmark source backed by a bookmarks file. The file
// may be a Chrome "Bookmarks" tree or a flat JSON list of bookmarks.
func NewSource(path string) (*Source, error) {
	s := &Source{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file and replaces the snapshot.
func (s *Source) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read bookmarks file: %w", err)
	}

	flat, err := Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse bookmarks file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.bookmarks = flat
	s.mu.Unlock()
	return nil
}

// Parse decodes bookmark JSON in either the Chrome tree format or a flat
// list of {id, title, url} objects.
func Parse(data []byte) ([]types.Bookmark, error) {
	// Chrome tree format first
	var tree chromeFile
	if err := json.Unmarshal(data, &tree); err == nil && len(tree.Roots) > 0 {
		// Stable root order: Chrome writes bookmark_bar, other, synced
		names := make([]string, 0, len(tree.Roots))
		for name := range tree.Roots {
			names = append(names, name)
		}
		sort.Strings(names)

		var roots []Node
		for _, name := range names {
			roots = append(roots, tree.Roots[name])
		}
		return Flatten(roots), nil
	}

	// Flat list format
	var flat []struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		URL       string    `json:"url"`
		DateAdded time.Time `json:"dateAdded"`
	}
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("unrecognized bookmarks format: %w", err)
	}

	out := make([]types.Bookmark, 0, len(flat))
	for _, b := range flat {
		if b.URL == "" {
			continue
		}
		out = append(out, types.Bookmark{
			ID:        b.ID,
			Title:     b.Title,
			URL:       b.URL,
			DateAdded: b.DateAdded,
		})
	}
	return out, nil
}

// Bookmarks returns the current ordered snapshot. The returned slice is
// shared; callers must not mutate it.
func (s *Source) Bookmarks() []types.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookmarks
}

// Get returns the bookmark with the given id, if present.
func (s *Source) Get(id string) (types.Bookmark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookmarks {
		if b.ID == id {
			return b, true
		}
	}
	return types.Bookmark{}, false
}
