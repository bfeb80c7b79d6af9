package crates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		UserAgent: "test-agent",
		BaseURL:   server.URL,
	})
}

// TestSearch_SendsQueryParams verifies search parameters reach the wire.
func TestSearch_SendsQueryParams(t *testing.T) {
	var gotQuery map[string]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crates" {
			t.Errorf("expected path /crates, got %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("expected user agent 'test-agent', got %q", ua)
		}
		gotQuery = map[string]string{
			"q":        r.URL.Query().Get("q"),
			"sort":     r.URL.Query().Get("sort"),
			"page":     r.URL.Query().Get("page"),
			"per_page": r.URL.Query().Get("per_page"),
		}
		w.Write([]byte(`{"crates":[{"name":"serde","max_version":"1.0.200","downloads":500,
			"created_at":"2014-11-24T02:34:44Z","updated_at":"2024-05-01T00:00:00Z"}],
			"meta":{"total":1}}`))
	}))

	page, err := client.Search(context.Background(), Query{
		Search:  "serialization",
		Sort:    SortDownloads,
		Page:    2,
		PerPage: 25,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if gotQuery["q"] != "serialization" || gotQuery["sort"] != "downloads" ||
		gotQuery["page"] != "2" || gotQuery["per_page"] != "25" {
		t.Errorf("unexpected query params: %v", gotQuery)
	}
	if len(page.Crates) != 1 || page.Crates[0].Name != "serde" {
		t.Errorf("unexpected crates: %+v", page.Crates)
	}
	if page.Meta.Total != 1 {
		t.Errorf("expected total 1, got %d", page.Meta.Total)
	}
}

// TestGetCrate_DecodesResponse verifies crate detail decoding.
func TestGetCrate_DecodesResponse(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crates/tokio" {
			t.Errorf("expected path /crates/tokio, got %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"crate": {"name":"tokio","description":"An async runtime","max_version":"1.38.0",
				"downloads":250000000,"created_at":"2016-07-01T00:00:00Z",
				"updated_at":"2024-06-01T00:00:00Z","repository":"https://github.com/tokio-rs/tokio"},
			"versions": [{"num":"1.38.0","created_at":"2024-05-30T00:00:00Z","downloads":100},
				{"num":"1.37.0","yanked":true,"created_at":"2024-03-28T00:00:00Z","downloads":50}]
		}`))
	}))

	resp, err := client.GetCrate(context.Background(), "tokio")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.Crate.Name != "tokio" || resp.Crate.Downloads != 250000000 {
		t.Errorf("unexpected crate: %+v", resp.Crate)
	}
	if len(resp.Versions) != 2 || !resp.Versions[1].Yanked {
		t.Errorf("unexpected versions: %+v", resp.Versions)
	}
}

// TestGetCrate_NotFound verifies 404 maps to ErrNotFound.
func TestGetCrate_NotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.GetCrate(context.Background(), "no-such-crate")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

// TestClient_RateLimited verifies 429 maps to ErrRateLimited.
func TestClient_RateLimited(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.Summary(context.Background())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got: %v", err)
	}
}

// TestClient_APIError verifies other statuses yield *APIError with the body.
func TestClient_APIError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("registry on fire"))
	}))

	_, err := client.Summary(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got: %v", err)
	}
	if apiErr.Status != 500 || apiErr.Message != "registry on fire" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

// TestReverseDependencies_JoinsVersions verifies dependencies are joined
// to their crate versions by version ID and dangling IDs are dropped.
func TestReverseDependencies_JoinsVersions(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crates/serde/reverse_dependencies" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"dependencies": [
				{"crate_id":"serde","req":"^1.0","version_id":11},
				{"crate_id":"serde","req":"^1.0","version_id":99}
			],
			"versions": [{"id":11,"crate":"serde_json","num":"1.0.117"}],
			"meta": {"total":2}
		}`))
	}))

	rdeps, err := client.ReverseDependencies(context.Background(), "serde")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(rdeps.Dependencies) != 1 {
		t.Fatalf("expected 1 joined dependency, got %d", len(rdeps.Dependencies))
	}
	got := rdeps.Dependencies[0]
	if got.CrateVersion.CrateName != "serde_json" || got.CrateVersion.Num != "1.0.117" {
		t.Errorf("unexpected crate version: %+v", got.CrateVersion)
	}
	if got.Dependency.Req != "^1.0" {
		t.Errorf("unexpected dependency: %+v", got.Dependency)
	}
	if rdeps.Meta.Total != 2 {
		t.Errorf("expected total 2, got %d", rdeps.Meta.Total)
	}
}

// TestDependencies_UnwrapsList verifies the dependencies wrapper is unwrapped.
func TestDependencies_UnwrapsList(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crates/tokio/1.38.0/dependencies" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"dependencies":[
			{"crate_id":"mio","req":"^1.0","kind":"normal"},
			{"crate_id":"loom","req":"^0.7","kind":"dev","optional":false}
		]}`))
	}))

	deps, err := client.Dependencies(context.Background(), "tokio", "1.38.0")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(deps) != 2 || deps[0].CrateID != "mio" || deps[1].Kind != "dev" {
		t.Errorf("unexpected dependencies: %+v", deps)
	}
}

// TestOwners_UnwrapsUsers verifies the users wrapper is unwrapped.
func TestOwners_UnwrapsUsers(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"users":[{"login":"dtolnay","name":"David Tolnay","kind":"user"}]}`))
	}))

	owners, err := client.Owners(context.Background(), "serde")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(owners) != 1 || owners[0].Login != "dtolnay" {
		t.Errorf("unexpected owners: %+v", owners)
	}
}

// TestCategory_UnwrapsCategory verifies the category wrapper is unwrapped.
func TestCategory_UnwrapsCategory(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categories/asynchronous" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"category":{"category":"Asynchronous","crates_cnt":4500,
			"slug":"asynchronous","description":"Async programming"}}`))
	}))

	cat, err := client.Category(context.Background(), "asynchronous")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cat.Category != "Asynchronous" || cat.CratesCnt != 4500 {
		t.Errorf("unexpected category: %+v", cat)
	}
}

// TestReadme_ReturnsBodyVerbatim verifies the readme endpoint returns
// the raw text body.
func TestReadme_ReturnsBodyVerbatim(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crates/serde/1.0.200/readme" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("# serde\n\nSerialization framework."))
	}))

	readme, err := client.Readme(context.Background(), "serde", "1.0.200")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if readme != "# serde\n\nSerialization framework." {
		t.Errorf("unexpected readme: %q", readme)
	}
}

// TestAuthors_UnwrapsMetaNames verifies author names are unwrapped from
// the meta envelope.
func TestAuthors_UnwrapsMetaNames(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crates/serde/1.0.200/authors" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"meta":{"names":["Erick Tryzelaar","David Tolnay <dtolnay@gmail.com>"]}}`))
	}))

	authors, err := client.Authors(context.Background(), "serde", "1.0.200")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(authors) != 2 || authors[0] != "Erick Tryzelaar" {
		t.Errorf("unexpected authors: %+v", authors)
	}
}

// TestUser_DecodesNumericID verifies the user wrapper is unwrapped and
// the numeric ID survives for the stats lookup.
func TestUser_DecodesNumericID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/dtolnay":
			w.Write([]byte(`{"user":{"id":1234,"login":"dtolnay","name":"David Tolnay"}}`))
		case "/users/1234/stats":
			w.Write([]byte(`{"total_downloads":9000000000}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))

	user, err := client.User(context.Background(), "dtolnay")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user.ID != 1234 || user.Login != "dtolnay" {
		t.Errorf("unexpected user: %+v", user)
	}

	stats, err := client.UserStats(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if stats.TotalDownloads != 9000000000 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// TestClient_ContextCancellation verifies a canceled ctx aborts the call.
func TestClient_ContextCancellation(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Summary(ctx)
	if err == nil {
		t.Fatal("expected error for canceled context, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got: %v", err)
	}
}
