package tools

import (
	"fmt"
	"sync"

	"github.com/jonwraymond/cratesmcp/crates"
	"github.com/jonwraymond/cratesmcp/docscache"
	"github.com/jonwraymond/cratesmcp/docsrs"
	"github.com/jonwraymond/cratesmcp/osv"
)

// maxRecentSearches caps the recent search history.
const maxRecentSearches = 10

// CrateSummary is a condensed search result kept in the recent-search
// history.
type CrateSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MaxVersion  string `json:"max_version"`
	Downloads   int64  `json:"downloads"`
}

// SearchRecord is one remembered search query with its results.
type SearchRecord struct {
	Query   string         `json:"query"`
	Results []CrateSummary `json:"results"`
}

// State bundles the upstream clients shared by all tool handlers.
//
// Contract:
//   - Concurrency: safe for concurrent use; the search history is
//     mutex-guarded.
type State struct {
	Client    *crates.Client
	DocsRs    *docsrs.Client
	OSV       *osv.Client
	DocsCache *docscache.Cache

	mu             sync.Mutex
	recentSearches []SearchRecord
}

// SaveSearch records a search query and its results, keeping only the
// most recent entries.
func (s *State) SaveSearch(query string, results []CrateSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.recentSearches) >= maxRecentSearches {
		s.recentSearches = s.recentSearches[1:]
	}
	s.recentSearches = append(s.recentSearches, SearchRecord{Query: query, Results: results})
}

// RecentSearches returns a copy of the recorded search history, oldest
// first.
func (s *State) RecentSearches() []SearchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SearchRecord, len(s.recentSearches))
	copy(out, s.recentSearches)
	return out
}

// FormatCount renders large counts in a compact human-readable form
// (1.5K, 2.5M).
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
