package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cuzradio/storectl/internal/model"
)

// step scripts one fetch: what it returns and, optionally, a gate it
// blocks on so tests can order overlapping fetches.
type step struct {
	listing model.Listing
	err     error
	began   chan struct{}
	gate    chan struct{}
}

type scriptedFetcher struct {
	mu    sync.Mutex
	steps []*step
	calls int
}

var _ Fetcher = (*scriptedFetcher)(nil)

func (f *scriptedFetcher) ListItems(_ context.Context, _ model.Tier, _ int) (model.Listing, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	var s *step
	if i < len(f.steps) {
		s = f.steps[i]
	}
	f.mu.Unlock()
	if s == nil {
		return model.Listing{}, errors.New("unscripted fetch")
	}
	if s.began != nil {
		close(s.began)
	}
	if s.gate != nil {
		<-s.gate
	}
	return s.listing, s.err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func listing(totalPages int, ids ...int64) model.Listing {
	items := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, model.Item{ID: id, Name: "item", Description: "d", Category: model.CategoryBooks})
	}
	return model.Listing{
		Items:      items,
		Pagination: model.Page{PageNumber: 1, ItemsPerPage: 10, TotalPages: totalPages},
	}
}

func TestList_SecondCallServedFromCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := &scriptedFetcher{steps: []*step{{listing: listing(1, 1, 2)}}}
	c := New(f, nil)

	e1, err := c.List(ctx, model.TierPrimary, 1)
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	e2, err := c.List(ctx, model.TierPrimary, 1)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if f.callCount() != 1 {
		t.Fatalf("fetch calls=%d, want exactly 1", f.callCount())
	}
	if len(e1.Items) != 2 || len(e2.Items) != 2 || e2.Status != StatusReady {
		t.Fatalf("entries: %+v / %+v", e1, e2)
	}
}

func TestList_KeysAreIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := &scriptedFetcher{steps: []*step{
		{listing: listing(2, 1)},
		{listing: listing(2, 2)},
	}}
	c := New(f, nil)

	if _, err := c.List(ctx, model.TierPrimary, 1); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if _, err := c.List(ctx, model.TierPrimary, 2); err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if f.callCount() != 2 {
		t.Fatalf("fetch calls=%d, want 2 (one per key)", f.callCount())
	}
}

func TestInvalidate_NextListRefetches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := &scriptedFetcher{steps: []*step{
		{listing: listing(1, 1, 7)},
		{listing: listing(1, 1)},
	}}
	c := New(f, nil)

	if _, err := c.List(ctx, model.TierPrimary, 1); err != nil {
		t.Fatalf("list: %v", err)
	}
	c.Invalidate(model.TierPrimary, 1)

	e, err := c.List(ctx, model.TierPrimary, 1)
	if err != nil {
		t.Fatalf("list after invalidate: %v", err)
	}
	if f.callCount() != 2 {
		t.Fatalf("fetch calls=%d, want refetch after invalidation", f.callCount())
	}
	for _, it := range e.Items {
		if it.ID == 7 {
			t.Fatalf("deleted item still visible after invalidated refetch: %+v", e.Items)
		}
	}
}

func TestInvalidate_UnknownKeyIsNoop(t *testing.T) {
	t.Parallel()
	c := New(&scriptedFetcher{}, nil)
	c.Invalidate(model.TierAdmin, 3)
	if _, ok := c.Peek(model.TierAdmin, 3); ok {
		t.Fatalf("invalidate must not create entries")
	}
}

func TestList_ErrorDiscardsPreviousData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fetchErr := errors.New("server unreachable")
	f := &scriptedFetcher{steps: []*step{
		{listing: listing(1, 1, 2)},
		{err: fetchErr},
	}}
	c := New(f, nil)

	if _, err := c.List(ctx, model.TierPrimary, 1); err != nil {
		t.Fatalf("list: %v", err)
	}
	c.Invalidate(model.TierPrimary, 1)

	e, err := c.List(ctx, model.TierPrimary, 1)
	if !errors.Is(err, fetchErr) {
		t.Fatalf("err=%v, want %v", err, fetchErr)
	}
	if e.Status != StatusError || len(e.Items) != 0 || e.Pagination.TotalPages != 0 {
		t.Fatalf("error entry keeps stale data: %+v", e)
	}

	// The error state is sticky until something invalidates it: no
	// automatic retry on the next read.
	if _, err := c.List(ctx, model.TierPrimary, 1); !errors.Is(err, fetchErr) {
		t.Fatalf("want recorded error on settled entry, got %v", err)
	}
	if f.callCount() != 2 {
		t.Fatalf("fetch calls=%d, want no retry without invalidation", f.callCount())
	}
}

func TestList_ConcurrentCallsShareOneFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	began := make(chan struct{})
	gate := make(chan struct{})
	f := &scriptedFetcher{steps: []*step{{listing: listing(1, 1), began: began, gate: gate}}}
	c := New(f, nil)

	const n = 8
	var wg sync.WaitGroup
	entries := make([]Entry, n)
	errsOut := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i], errsOut[i] = c.List(ctx, model.TierPrimary, 1)
		}(i)
	}

	<-began
	close(gate)
	wg.Wait()

	if f.callCount() != 1 {
		t.Fatalf("fetch calls=%d, want single-flight", f.callCount())
	}
	for i := 0; i < n; i++ {
		if errsOut[i] != nil || len(entries[i].Items) != 1 {
			t.Fatalf("caller %d: entry=%+v err=%v", i, entries[i], errsOut[i])
		}
	}
}

func TestList_SupersededResponseDiscarded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	began := make(chan struct{})
	gate := make(chan struct{})
	f := &scriptedFetcher{steps: []*step{
		{listing: listing(1, 1), began: began, gate: gate}, // stale snapshot, held in flight
		{listing: listing(1, 2)},                           // post-mutation data
	}}
	c := New(f, nil)

	type result struct {
		e   Entry
		err error
	}
	done := make(chan result, 1)
	go func() {
		e, err := c.List(ctx, model.TierPrimary, 1)
		done <- result{e, err}
	}()

	<-began
	// A mutation lands while the first fetch is still in flight.
	c.Invalidate(model.TierPrimary, 1)

	e2, err := c.List(ctx, model.TierPrimary, 1)
	if err != nil {
		t.Fatalf("replacement list: %v", err)
	}
	if len(e2.Items) != 1 || e2.Items[0].ID != 2 {
		t.Fatalf("replacement entry=%+v, want post-mutation data", e2)
	}

	// Release the superseded fetch; its response must not clobber the
	// newer generation, and its waiter observes the newer data.
	close(gate)
	select {
	case r := <-done:
		if r.err != nil || len(r.e.Items) != 1 || r.e.Items[0].ID != 2 {
			t.Fatalf("waiter got %+v err=%v, want newest generation", r.e, r.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("waiter never completed")
	}

	got, ok := c.Peek(model.TierPrimary, 1)
	if !ok || got.Status != StatusReady || got.Items[0].ID != 2 {
		t.Fatalf("final entry=%+v, want last-write-wins by key", got)
	}
	if f.callCount() != 2 {
		t.Fatalf("fetch calls=%d", f.callCount())
	}
}

func TestList_EntrySnapshotIsCallerOwned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := &scriptedFetcher{steps: []*step{{listing: listing(1, 1, 2)}}}
	c := New(f, nil)

	e, err := c.List(ctx, model.TierPrimary, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	e.Items[0].Name = "mutated"

	again, _ := c.Peek(model.TierPrimary, 1)
	if again.Items[0].Name != "item" {
		t.Fatalf("cache aliased caller slice: %+v", again.Items)
	}
}
