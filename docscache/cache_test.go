package docscache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/cratesmcp/docsrs"
)

func syntheticCrate(version string) *docsrs.Crate {
	return &docsrs.Crate{
		Root:          0,
		CrateVersion:  version,
		FormatVersion: 46,
		Index:         map[string]*docsrs.Item{},
		Paths:         map[string]docsrs.ItemEntry{},
	}
}

type fakeFetcher struct {
	calls atomic.Int64
	err   error
	block chan struct{}
}

func (f *fakeFetcher) FetchDocs(_ context.Context, _, version string) (*docsrs.Crate, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return syntheticCrate(version), nil
}

func TestCache_InsertAndGet(t *testing.T) {
	c := New(Config{})

	c.Insert("serde", "1.0.0", syntheticCrate("1.0.0"))

	krate, ok := c.Get("serde", "1.0.0")
	if !ok {
		t.Fatal("Get() = miss, want hit")
	}
	if krate.CrateVersion != "1.0.0" {
		t.Errorf("CrateVersion = %q", krate.CrateVersion)
	}
}

func TestCache_MissReturnsFalse(t *testing.T) {
	c := New(Config{})

	if _, ok := c.Get("nonexistent", "1.0.0"); ok {
		t.Error("Get() = hit, want miss")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c := New(Config{TTL: 10 * time.Millisecond})

	c.Insert("serde", "1.0.0", syntheticCrate("1.0.0"))
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("serde", "1.0.0"); ok {
		t.Error("Get() after TTL = hit, want miss")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(Config{MaxEntries: 2})

	c.Insert("a", "1.0.0", syntheticCrate("1.0.0"))
	c.Insert("b", "1.0.0", syntheticCrate("1.0.0"))
	// Access "a" so "b" becomes least recently used.
	c.Get("a", "1.0.0")
	c.Insert("c", "1.0.0", syntheticCrate("1.0.0"))

	if _, ok := c.Get("a", "1.0.0"); !ok {
		t.Error("a evicted, want kept")
	}
	if _, ok := c.Get("b", "1.0.0"); ok {
		t.Error("b kept, want evicted")
	}
	if _, ok := c.Get("c", "1.0.0"); !ok {
		t.Error("c evicted, want kept")
	}
}

func TestCache_SingleEntryEviction(t *testing.T) {
	c := New(Config{MaxEntries: 1})
	f := &fakeFetcher{}

	if _, err := c.GetOrFetch(context.Background(), f, "crateA", "latest"); err != nil {
		t.Fatalf("GetOrFetch(crateA) error = %v", err)
	}
	if _, err := c.GetOrFetch(context.Background(), f, "crateB", "latest"); err != nil {
		t.Fatalf("GetOrFetch(crateB) error = %v", err)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	// crateA was evicted: fetching it again triggers a fresh upstream fetch.
	if _, err := c.GetOrFetch(context.Background(), f, "crateA", "latest"); err != nil {
		t.Fatalf("GetOrFetch(crateA) error = %v", err)
	}
	if got := f.calls.Load(); got != 3 {
		t.Errorf("fetch calls = %d, want 3", got)
	}
}

func TestCache_GetOrFetch_SingleFlight(t *testing.T) {
	c := New(Config{})
	f := &fakeFetcher{block: make(chan struct{})}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrFetch(context.Background(), f, "tokio", "latest")
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(f.block)
	wg.Wait()

	if got := f.calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestCache_GetOrFetch_FailureNotCached(t *testing.T) {
	c := New(Config{})
	f := &fakeFetcher{err: errors.New("406")}

	if _, err := c.GetOrFetch(context.Background(), f, "old", "0.1.0"); err == nil {
		t.Fatal("GetOrFetch() error = nil, want failure")
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d after failure, want 0", got)
	}

	f.err = nil
	if _, err := c.GetOrFetch(context.Background(), f, "old", "0.1.0"); err != nil {
		t.Fatalf("GetOrFetch() retry error = %v", err)
	}
	if got := f.calls.Load(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
}

func TestCache_GetOrFetch_DecodeErrorPropagates(t *testing.T) {
	c := New(Config{})
	f := &fakeFetcher{err: docsrs.ErrDecode}

	_, err := c.GetOrFetch(context.Background(), f, "broken", "1.0.0")
	if !errors.Is(err, docsrs.ErrDecode) {
		t.Errorf("GetOrFetch() error = %v, want ErrDecode", err)
	}
}
