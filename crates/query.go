package crates

import (
	"net/url"
	"strconv"
)

// Sort is the sort order for crate search results.
type Sort string

const (
	SortAlphabetical    Sort = "alpha"
	SortRelevance       Sort = "relevance"
	SortDownloads       Sort = "downloads"
	SortRecentDownloads Sort = "recent-downloads"
	SortRecentUpdates   Sort = "recent-updates"
	SortNewlyAdded      Sort = "new"
)

// Query holds search parameters for the crates listing endpoint. Zero
// values are omitted from the request.
type Query struct {
	Search  string
	Sort    Sort
	Page    int
	PerPage int
}

func (q Query) values() url.Values {
	params := url.Values{}
	if q.Search != "" {
		params.Set("q", q.Search)
	}
	if q.Sort != "" {
		params.Set("sort", string(q.Sort))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return params
}
