// Package osv implements a client for the OSV.dev vulnerability API,
// which aggregates advisories for crates.io packages from RustSec,
// GHSA, and NVD.
package osv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is returned for non-success responses from OSV.dev.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("osv: API error (%d): %s", e.Status, e.Message)
}

// QueryResponse is the top-level response from POST /v1/query. Vulns is
// nil when the package has no known vulnerabilities.
type QueryResponse struct {
	Vulns []Vulnerability `json:"vulns,omitempty"`
}

// Vulnerability is a single advisory record.
type Vulnerability struct {
	// ID is the advisory ID (e.g. "RUSTSEC-2021-0078", "GHSA-...").
	ID         string      `json:"id"`
	Summary    string      `json:"summary,omitempty"`
	Details    string      `json:"details,omitempty"`
	Severity   []Severity  `json:"severity,omitempty"`
	Affected   []Affected  `json:"affected,omitempty"`
	References []Reference `json:"references,omitempty"`
}

// Severity is CVSS severity information.
type Severity struct {
	// Type is the severity scheme (e.g. "CVSS_V3", "CVSS_V4").
	Type string `json:"type"`
	// Score is the CVSS vector string.
	Score string `json:"score"`
}

// Affected describes an affected package and its version ranges.
type Affected struct {
	Package *Package `json:"package,omitempty"`
	Ranges  []Range  `json:"ranges,omitempty"`
}

// Package identifies a package within an ecosystem.
type Package struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

// Range is a version range that is affected.
type Range struct {
	Type   string  `json:"type"`
	Events []Event `json:"events"`
}

// Event is a version boundary (introduced or fixed).
type Event struct {
	Introduced string `json:"introduced,omitempty"`
	Fixed      string `json:"fixed,omitempty"`
}

// Reference is an advisory link.
type Reference struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type queryRequest struct {
	Package queryPackage `json:"package"`
	Version string       `json:"version,omitempty"`
}

type queryPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

// ClientConfig configures the OSV.dev client.
type ClientConfig struct {
	// UserAgent identifies this client.
	UserAgent string

	// BaseURL is the API root. Default: https://api.osv.dev/v1
	BaseURL string

	// HTTPClient is the underlying HTTP client. Default: 30s timeout
	HTTPClient *http.Client
}

// Client queries OSV.dev for vulnerability records.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: every call honors ctx cancellation.
//   - Errors: non-success statuses yield *APIError.
type Client struct {
	config ClientConfig
	http   *http.Client
}

// NewClient creates a new OSV.dev client.
func NewClient(config ClientConfig) *Client {
	// Apply defaults
	if config.BaseURL == "" {
		config.BaseURL = "https://api.osv.dev/v1"
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

// QueryPackage returns vulnerabilities affecting a specific version of a
// crates.io package.
func (c *Client) QueryPackage(ctx context.Context, name, version string) (*QueryResponse, error) {
	return c.postQuery(ctx, queryRequest{
		Package: queryPackage{Name: name, Ecosystem: "crates.io"},
		Version: version,
	})
}

// QueryPackageAny returns all known vulnerabilities for a crates.io
// package across every version.
func (c *Client) QueryPackageAny(ctx context.Context, name string) (*QueryResponse, error) {
	return c.postQuery(ctx, queryRequest{
		Package: queryPackage{Name: name, Ecosystem: "crates.io"},
	})
}

func (c *Client) postQuery(ctx context.Context, body queryRequest) (*QueryResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("osv: encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("osv: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osv: query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var out QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("osv: decode response: %w", err)
	}
	return &out, nil
}
