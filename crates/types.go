package crates

import "time"

// Crate is crate metadata from the registry.
type Crate struct {
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	MaxVersion       string    `json:"max_version"`
	MaxStableVersion string    `json:"max_stable_version,omitempty"`
	Downloads        int64     `json:"downloads"`
	RecentDownloads  int64     `json:"recent_downloads,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Repository       string    `json:"repository,omitempty"`
	Documentation    string    `json:"documentation,omitempty"`
	Homepage         string    `json:"homepage,omitempty"`
	Keywords         []string  `json:"keywords,omitempty"`
	Categories       []string  `json:"categories,omitempty"`
}

// Version is metadata for a single published version.
type Version struct {
	Num         string              `json:"num"`
	Yanked      bool                `json:"yanked"`
	CreatedAt   time.Time           `json:"created_at"`
	Downloads   int64               `json:"downloads"`
	License     string              `json:"license,omitempty"`
	RustVersion string              `json:"rust_version,omitempty"`
	Features    map[string][]string `json:"features,omitempty"`
}

// VersionDownloads is a per-day download data point.
type VersionDownloads struct {
	Version   int64  `json:"version"`
	Downloads int64  `json:"downloads"`
	Date      string `json:"date,omitempty"`
}

// User is a user or team on the registry.
type User struct {
	ID     int64  `json:"id"`
	Login  string `json:"login"`
	Name   string `json:"name,omitempty"`
	URL    string `json:"url,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// Dependency is a dependency of a specific crate version.
type Dependency struct {
	CrateID   string `json:"crate_id"`
	Req       string `json:"req"`
	Kind      string `json:"kind,omitempty"`
	Optional  bool   `json:"optional"`
	VersionID int64  `json:"version_id,omitempty"`
}

// Keyword is a registry keyword.
type Keyword struct {
	Keyword   string `json:"keyword"`
	CratesCnt int64  `json:"crates_cnt"`
}

// Category is a registry category.
type Category struct {
	Category    string `json:"category"`
	CratesCnt   int64  `json:"crates_cnt"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

// Meta is pagination metadata.
type Meta struct {
	Total int64 `json:"total"`
}

// CrateVersion identifies a specific version of a crate.
type CrateVersion struct {
	CrateName string
	Num       string
}

// ReverseDependency is a crate version that depends on the queried crate.
type ReverseDependency struct {
	CrateVersion CrateVersion
	Dependency   Dependency
}

// CrateResponse is the response from GET /crates/{name}.
type CrateResponse struct {
	Crate    Crate     `json:"crate"`
	Versions []Version `json:"versions"`
}

// CratesPage is a page of search results from GET /crates.
type CratesPage struct {
	Crates []Crate `json:"crates"`
	Meta   Meta    `json:"meta"`
}

// CrateDownloads holds per-version download data points.
type CrateDownloads struct {
	VersionDownloads []VersionDownloads `json:"version_downloads"`
}

// ReverseDependencies holds joined reverse dependencies with pagination
// metadata.
type ReverseDependencies struct {
	Dependencies []ReverseDependency
	Meta         Meta
}

// Summary is registry-wide statistics from GET /summary.
type Summary struct {
	NumCrates         int64      `json:"num_crates"`
	NumDownloads      int64      `json:"num_downloads"`
	NewCrates         []Crate    `json:"new_crates"`
	MostDownloaded    []Crate    `json:"most_downloaded"`
	JustUpdated       []Crate    `json:"just_updated"`
	PopularKeywords   []Keyword  `json:"popular_keywords"`
	PopularCategories []Category `json:"popular_categories"`
}

// VersionsPage is a paginated versions response.
type VersionsPage struct {
	Versions []Version `json:"versions"`
	Meta     Meta      `json:"meta"`
}

// CategoriesPage is a paginated categories response.
type CategoriesPage struct {
	Categories []Category `json:"categories"`
	Meta       Meta       `json:"meta"`
}

// KeywordsPage is a paginated keywords response.
type KeywordsPage struct {
	Keywords []Keyword `json:"keywords"`
	Meta     Meta      `json:"meta"`
}

// UserStats is download statistics for a user.
type UserStats struct {
	TotalDownloads int64 `json:"total_downloads"`
}
