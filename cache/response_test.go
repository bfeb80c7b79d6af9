package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func computeValue(v string) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) {
		return []byte(v), nil
	}
}

func TestResponseCache_HitAfterMiss(t *testing.T) {
	c := NewResponseCache(ResponseCacheConfig{Enabled: true})

	var calls atomic.Int64
	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("result"), nil
	}

	v, outcome, err := c.GetOrCompute(context.Background(), "tool:a:1", compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if outcome != OutcomeMiss {
		t.Errorf("outcome = %v, want miss", outcome)
	}
	if string(v) != "result" {
		t.Errorf("value = %q, want %q", v, "result")
	}

	v, outcome, err = c.GetOrCompute(context.Background(), "tool:a:1", compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if outcome != OutcomeHit {
		t.Errorf("outcome = %v, want hit", outcome)
	}
	if string(v) != "result" {
		t.Errorf("value = %q, want %q", v, "result")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("compute calls = %d, want 1", got)
	}
}

func TestResponseCache_InvalidKey(t *testing.T) {
	c := NewResponseCache(ResponseCacheConfig{Enabled: true})

	var calls atomic.Int64
	_, _, err := c.GetOrCompute(context.Background(), "", func(context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, nil
	})
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("GetOrCompute() error = %v, want ErrInvalidKey", err)
	}
	if calls.Load() != 0 {
		t.Error("compute ran despite invalid key")
	}
}

func TestResponseCache_TTLExpiry(t *testing.T) {
	c := NewResponseCache(ResponseCacheConfig{
		Enabled: true,
		TTL:     40 * time.Millisecond,
	})

	var calls atomic.Int64
	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("v"), nil
	}

	_, _, _ = c.GetOrCompute(context.Background(), "tool:a:1", compute)

	// Before expiry: served from cache.
	_, outcome, _ := c.GetOrCompute(context.Background(), "tool:a:1", compute)
	if outcome != OutcomeHit {
		t.Errorf("outcome before expiry = %v, want hit", outcome)
	}

	time.Sleep(60 * time.Millisecond)

	// After expiry: treated as absent, recomputed.
	_, outcome, _ = c.GetOrCompute(context.Background(), "tool:a:1", compute)
	if outcome != OutcomeMiss {
		t.Errorf("outcome after expiry = %v, want miss", outcome)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("compute calls = %d, want 2", got)
	}
}

func TestResponseCache_InsertionOrderEviction(t *testing.T) {
	const maxSize = 3
	c := NewResponseCache(ResponseCacheConfig{
		Enabled: true,
		MaxSize: maxSize,
	})

	for i := 0; i < maxSize+1; i++ {
		key := fmt.Sprintf("tool:a:%d", i)
		_, _, err := c.GetOrCompute(context.Background(), key, computeValue(key))
		if err != nil {
			t.Fatalf("GetOrCompute(%s) error = %v", key, err)
		}
	}

	if got := c.Len(); got != maxSize {
		t.Errorf("Len() = %d, want %d", got, maxSize)
	}

	// The earliest-inserted key must have been evicted.
	var calls atomic.Int64
	_, outcome, _ := c.GetOrCompute(context.Background(), "tool:a:0", func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("recomputed"), nil
	})
	if outcome != OutcomeMiss {
		t.Errorf("outcome for evicted key = %v, want miss", outcome)
	}
	if calls.Load() != 1 {
		t.Error("evicted key was not recomputed")
	}

	// Later keys are still present.
	_, outcome, _ = c.GetOrCompute(context.Background(), "tool:a:3", computeValue("x"))
	if outcome != OutcomeHit {
		t.Errorf("outcome for newest key = %v, want hit", outcome)
	}
}

func TestResponseCache_SingleFlight(t *testing.T) {
	c := NewResponseCache(ResponseCacheConfig{Enabled: true})

	const callers = 10
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		close(started)
		<-release
		return []byte("shared"), nil
	}

	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrCompute(context.Background(), "tool:a:1", compute)
			if err != nil {
				t.Errorf("GetOrCompute() error = %v", err)
				return
			}
			results[i] = string(v)
		}(i)
	}

	<-started
	// Give the remaining callers time to attach to the in-flight marker.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compute calls = %d, want 1", got)
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("caller %d got %q, want %q", i, r, "shared")
		}
	}
}

func TestResponseCache_FailureNotCached(t *testing.T) {
	c := NewResponseCache(ResponseCacheConfig{Enabled: true})

	wantErr := errors.New("upstream down")
	var calls atomic.Int64
	failing := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, wantErr
	}

	_, _, err := c.GetOrCompute(context.Background(), "tool:a:1", failing)
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, wantErr)
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d after failure, want 0", got)
	}

	// A later call retries rather than serving a cached failure.
	_, _, err = c.GetOrCompute(context.Background(), "tool:a:1", failing)
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, wantErr)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("compute calls = %d, want 2", got)
	}
}

func TestResponseCache_WaitersShareFailure(t *testing.T) {
	c := NewResponseCache(ResponseCacheConfig{Enabled: true})

	wantErr := errors.New("boom")
	started := make(chan struct{})
	release := make(chan struct{})

	compute := func(context.Context) ([]byte, error) {
		close(started)
		<-release
		return nil, wantErr
	}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = c.GetOrCompute(context.Background(), "tool:a:1", compute)
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("caller %d error = %v, want %v", i, err, wantErr)
		}
	}
}

func TestResponseCache_DisabledStillDeduplicates(t *testing.T) {
	c := NewResponseCache(ResponseCacheConfig{Enabled: false})

	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		close(started)
		<-release
		return []byte("v"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.GetOrCompute(context.Background(), "tool:a:1", compute)
		}()
	}
	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compute calls = %d, want 1 (dedup preserved when disabled)", got)
	}

	// Nothing stored: a sequential repeat computes again.
	_, outcome, _ := c.GetOrCompute(context.Background(), "tool:a:1", computeValue("v"))
	if outcome != OutcomeMiss {
		t.Errorf("outcome = %v, want miss when disabled", outcome)
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0 when disabled", got)
	}
}

func TestResponseCache_CallersReceiveCopies(t *testing.T) {
	c := NewResponseCache(ResponseCacheConfig{Enabled: true})

	v1, _, _ := c.GetOrCompute(context.Background(), "tool:a:1", computeValue("immutable"))
	v1[0] = 'X'

	v2, outcome, _ := c.GetOrCompute(context.Background(), "tool:a:1", computeValue("other"))
	if outcome != OutcomeHit {
		t.Fatalf("outcome = %v, want hit", outcome)
	}
	if !bytes.Equal(v2, []byte("immutable")) {
		t.Errorf("cached entry mutated through caller slice: %q", v2)
	}
}

func TestResponseCache_AttachedWaiterHonorsOwnDeadline(t *testing.T) {
	c := NewResponseCache(ResponseCacheConfig{Enabled: true})

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		_, _, _ = c.GetOrCompute(context.Background(), "tool:a:1", func(context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte("late"), nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := c.GetOrCompute(ctx, "tool:a:1", computeValue("unused"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetOrCompute() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("waiter blocked %v past its deadline", elapsed)
	}
}
