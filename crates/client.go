package crates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ClientConfig configures the crates.io client.
type ClientConfig struct {
	// UserAgent identifies this client to the registry. The crawling
	// policy requires a contactable user agent.
	UserAgent string

	// BaseURL is the API root. Default: https://crates.io/api/v1
	BaseURL string

	// HTTPClient is the underlying HTTP client. Default: 30s timeout
	HTTPClient *http.Client
}

// Client is a read-only crates.io API client.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: every call honors ctx cancellation.
//   - Errors: 404 maps to ErrNotFound, 429 to ErrRateLimited, 403 to
//     ErrPermissionDenied; other non-success statuses yield *APIError.
type Client struct {
	config ClientConfig
	http   *http.Client
}

// NewClient creates a new crates.io client.
func NewClient(config ClientConfig) *Client {
	// Apply defaults
	if config.BaseURL == "" {
		config.BaseURL = "https://crates.io/api/v1"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		config: config,
		http:   config.HTTPClient,
	}
}

// getJSON issues a GET request and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("crates: build request for %s: %w", path, err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crates: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, path); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crates: decode response for %s: %w", path, err)
	}
	return nil
}

// checkStatus maps non-success HTTP statuses to typed errors.
func checkStatus(resp *http.Response, path string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusForbidden:
		return ErrPermissionDenied
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
}

// Summary returns registry-wide statistics.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	if err := c.getJSON(ctx, "/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns a page of crates matching the query.
func (c *Client) Search(ctx context.Context, query Query) (*CratesPage, error) {
	var out CratesPage
	if err := c.getJSON(ctx, "/crates", query.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCrate returns detailed information about a crate, including its
// published versions.
func (c *Client) GetCrate(ctx context.Context, name string) (*CrateResponse, error) {
	var out CrateResponse
	if err := c.getJSON(ctx, "/crates/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Versions returns a paginated version list for a crate.
func (c *Client) Versions(ctx context.Context, name string, page, perPage int) (*VersionsPage, error) {
	params := pageParams(page, perPage)
	var out VersionsPage
	if err := c.getJSON(ctx, "/crates/"+url.PathEscape(name)+"/versions", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVersion returns metadata for a specific crate version.
func (c *Client) GetVersion(ctx context.Context, name, version string) (*Version, error) {
	var out struct {
		Version Version `json:"version"`
	}
	path := "/crates/" + url.PathEscape(name) + "/" + url.PathEscape(version)
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Version, nil
}

// Downloads returns download data for a crate over the last 90 days,
// all versions.
func (c *Client) Downloads(ctx context.Context, name string) (*CrateDownloads, error) {
	var out CrateDownloads
	if err := c.getJSON(ctx, "/crates/"+url.PathEscape(name)+"/downloads", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VersionDownloads returns per-day download data for a specific version.
func (c *Client) VersionDownloads(ctx context.Context, name, version string) (*CrateDownloads, error) {
	var out CrateDownloads
	path := "/crates/" + url.PathEscape(name) + "/" + url.PathEscape(version) + "/downloads"
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dependencies returns the dependencies of a specific crate version.
func (c *Client) Dependencies(ctx context.Context, name, version string) ([]Dependency, error) {
	var out struct {
		Dependencies []Dependency `json:"dependencies"`
	}
	path := "/crates/" + url.PathEscape(name) + "/" + url.PathEscape(version) + "/dependencies"
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Dependencies, nil
}

// reverseDependenciesRaw is the wire shape of the reverse_dependencies
// endpoint: a flat dependency list plus a parallel version list joined
// by version ID.
type reverseDependenciesRaw struct {
	Dependencies []Dependency `json:"dependencies"`
	Versions     []struct {
		ID    int64  `json:"id"`
		Crate string `json:"crate"`
		Num   string `json:"num"`
	} `json:"versions"`
	Meta Meta `json:"meta"`
}

// ReverseDependencies returns crates that depend on the given crate,
// with each dependency joined to its owning crate version.
func (c *Client) ReverseDependencies(ctx context.Context, name string) (*ReverseDependencies, error) {
	var raw reverseDependenciesRaw
	path := "/crates/" + url.PathEscape(name) + "/reverse_dependencies"
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return nil, err
	}

	versionByID := make(map[int64]CrateVersion, len(raw.Versions))
	for _, v := range raw.Versions {
		versionByID[v.ID] = CrateVersion{CrateName: v.Crate, Num: v.Num}
	}

	deps := make([]ReverseDependency, 0, len(raw.Dependencies))
	for _, dep := range raw.Dependencies {
		cv, ok := versionByID[dep.VersionID]
		if !ok {
			continue
		}
		deps = append(deps, ReverseDependency{CrateVersion: cv, Dependency: dep})
	}

	return &ReverseDependencies{Dependencies: deps, Meta: raw.Meta}, nil
}

// Owners returns the owners (users and teams) of a crate.
func (c *Client) Owners(ctx context.Context, name string) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.getJSON(ctx, "/crates/"+url.PathEscape(name)+"/owners", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Categories returns a paginated list of all categories.
func (c *Client) Categories(ctx context.Context, page, perPage int) (*CategoriesPage, error) {
	var out CategoriesPage
	if err := c.getJSON(ctx, "/categories", pageParams(page, perPage), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Category returns a single category by slug.
func (c *Client) Category(ctx context.Context, slug string) (*Category, error) {
	var out struct {
		Category Category `json:"category"`
	}
	if err := c.getJSON(ctx, "/categories/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}
	return &out.Category, nil
}

// Keywords returns a paginated list of all keywords.
func (c *Client) Keywords(ctx context.Context, page, perPage int) (*KeywordsPage, error) {
	var out KeywordsPage
	if err := c.getJSON(ctx, "/keywords", pageParams(page, perPage), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Keyword returns a single keyword by ID.
func (c *Client) Keyword(ctx context.Context, id string) (*Keyword, error) {
	var out struct {
		Keyword Keyword `json:"keyword"`
	}
	if err := c.getJSON(ctx, "/keywords/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Keyword, nil
}

// User returns a user's profile by login.
func (c *Client) User(ctx context.Context, username string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(username), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UserStats returns download statistics for a user by numeric ID.
func (c *Client) UserStats(ctx context.Context, userID int64) (*UserStats, error) {
	var out UserStats
	path := "/users/" + strconv.FormatInt(userID, 10) + "/stats"
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readme returns the rendered README for a specific crate version.
func (c *Client) Readme(ctx context.Context, name, version string) (string, error) {
	path := "/crates/" + url.PathEscape(name) + "/" + url.PathEscape(version) + "/readme"
	return c.getText(ctx, path)
}

// Authors returns the author strings recorded for a specific crate
// version.
func (c *Client) Authors(ctx context.Context, name, version string) ([]string, error) {
	var out struct {
		Meta struct {
			Names []string `json:"names"`
		} `json:"meta"`
	}
	path := "/crates/" + url.PathEscape(name) + "/" + url.PathEscape(version) + "/authors"
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Meta.Names, nil
}

// getText issues a GET request and returns the response body verbatim.
func (c *Client) getText(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("crates: build request for %s: %w", path, err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("crates: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, path); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("crates: read %s: %w", path, err)
	}
	return string(body), nil
}

func pageParams(page, perPage int) url.Values {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}
	return params
}
