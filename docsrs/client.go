package docsrs

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors for docs.rs operations. Decode failures are distinct
// from transport failures so callers can tell a broken payload from a
// broken connection; a decode failure is never treated as a cache miss.
var (
	// ErrNotFound means the crate or version does not exist on docs.rs.
	ErrNotFound = errors.New("docsrs: not found")

	// ErrNotAvailable means rustdoc JSON is not available for the build
	// (docs.rs returns 406 for builds that predate JSON support).
	ErrNotAvailable = errors.New("docsrs: rustdoc JSON not available")

	// ErrDecode means decompression or parsing of the payload failed.
	ErrDecode = errors.New("docsrs: payload decode failed")
)

const defaultBaseURL = "https://docs.rs"

// gzip magic bytes; docs.rs serves Content-Type application/gzip which
// the HTTP client does not auto-decompress.
var gzipMagic = []byte{0x1f, 0x8b}

// ClientConfig configures the docs.rs client.
type ClientConfig struct {
	// UserAgent identifies this server to docs.rs. Required by the
	// docs.rs crawling policy.
	UserAgent string

	// BaseURL overrides the docs.rs endpoint (for testing).
	// Default: https://docs.rs
	BaseURL string

	// HTTPClient is the HTTP client to use for requests.
	// If nil, a default client with 60s timeout is used.
	HTTPClient *http.Client
}

// Client fetches rustdoc JSON from docs.rs.
type Client struct {
	config ClientConfig
}

// NewClient creates a new docs.rs client.
func NewClient(config ClientConfig) *Client {
	// Apply defaults
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{config: config}
}

// FetchDocs retrieves and decodes the rustdoc JSON for a crate version.
// The version accepts "latest" or a specific semver string.
func (c *Client) FetchDocs(ctx context.Context, name, version string) (*Crate, error) {
	url := fmt.Sprintf("%s/crate/%s/%s/json.gz", c.config.BaseURL, name, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("docsrs: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docsrs: fetch %s/%s: %w", name, version, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s v%s", ErrNotFound, name, version)
	case resp.StatusCode == http.StatusNotAcceptable:
		return nil, fmt.Errorf("%w: %s v%s (requires docs.rs builds after 2025-05-23)", ErrNotAvailable, name, version)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("docsrs: fetch %s/%s: unexpected status %d", name, version, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("docsrs: read body for %s: %w", name, err)
	}

	return Decode(name, raw)
}

// Decode decompresses (if gzipped) and parses a rustdoc JSON payload.
func Decode(name string, raw []byte) (*Crate, error) {
	jsonBytes := raw
	if bytes.HasPrefix(raw, gzipMagic) {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: decompress %s: %v", ErrDecode, name, err)
		}
		jsonBytes, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress %s: %v", ErrDecode, name, err)
		}
	}

	var krate Crate
	if err := json.Unmarshal(jsonBytes, &krate); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrDecode, name, err)
	}
	return &krate, nil
}
