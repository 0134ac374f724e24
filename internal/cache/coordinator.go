// Package cache keeps per-(tier, page) listings consistent across
// mutations. It is an explicit keyed map with generation counters: one
// in-flight fetch per key at a time, synchronous stale marking, and
// last-write-wins by key so late responses never clobber newer data.
package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cuzradio/storectl/internal/model"
)

// Fetcher is the listing transport. *api.Client satisfies it.
type Fetcher interface {
	ListItems(ctx context.Context, tier model.Tier, page int) (model.Listing, error)
}

// Key addresses one cached listing. Entries are never merged across tiers.
type Key struct {
	Tier model.Tier
	Page int
}

// Status is the fetch state of an entry.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Entry is a caller-owned snapshot of one cache slot.
type Entry struct {
	Items      []model.Item
	Pagination model.Page
	Status     Status
	Err        error
}

// flight is one dispatched fetch. done closes when it settles, whether its
// result was applied or discarded.
type flight struct {
	gen  uint64
	done chan struct{}
}

type slot struct {
	items  []model.Item
	page   model.Page
	status Status
	err    error
	stale  bool
	gen    uint64 // latest dispatched generation for this key
	fl     *flight
}

func (s *slot) snapshot() Entry {
	return Entry{
		Items:      append([]model.Item(nil), s.items...),
		Pagination: s.page,
		Status:     s.status,
		Err:        s.err,
	}
}

// Coordinator owns the keyed cache. All operations are safe for
// concurrent use; per-key work is serialized by the single-flight
// discipline while distinct keys proceed independently.
type Coordinator struct {
	mu    sync.Mutex
	fetch Fetcher
	log   *zap.Logger
	slots map[Key]*slot
}

func New(fetch Fetcher, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{fetch: fetch, slots: make(map[Key]*slot), log: log}
}

func (c *Coordinator) ensure(k Key) *slot {
	s, ok := c.slots[k]
	if !ok {
		s = &slot{status: StatusPending}
		c.slots[k] = s
	}
	return s
}

// List returns the settled entry for (tier, page), fetching if the slot is
// absent or stale. Concurrent calls for the same key observe one
// underlying fetch; a call whose slot was invalidated mid-flight
// dispatches a replacement and the superseded response is discarded.
// A slot already in the error state is returned as-is (with its recorded
// failure) until something invalidates it; staleness after an error is not
// assumed safe, so the failed fetch also discarded any previous data.
func (c *Coordinator) List(ctx context.Context, tier model.Tier, page int) (Entry, error) {
	k := Key{Tier: tier, Page: page}
	c.mu.Lock()
	for {
		s := c.ensure(k)

		// Join the in-flight fetch unless the slot went stale since it
		// was dispatched; then a fresh fetch supersedes it.
		if s.fl != nil && !s.stale {
			fl := s.fl
			c.mu.Unlock()
			select {
			case <-fl.done:
			case <-ctx.Done():
				return Entry{}, ctx.Err()
			}
			c.mu.Lock()
			continue
		}

		if s.stale || (s.status == StatusPending && s.fl == nil) {
			s.gen++
			fl := &flight{gen: s.gen, done: make(chan struct{})}
			s.fl = fl
			s.stale = false
			s.status = StatusPending
			c.mu.Unlock()

			listing, err := c.fetch.ListItems(ctx, k.Tier, k.Page)

			c.mu.Lock()
			if fl.gen == s.gen {
				if err != nil {
					// Previous data is not assumed safe after a failure.
					s.items, s.page = nil, model.Page{}
					s.status, s.err = StatusError, err
				} else {
					s.items, s.page = listing.Items, listing.Pagination
					s.status, s.err = StatusReady, nil
				}
				s.fl = nil
			} else {
				c.log.Debug("cache: discarding superseded response",
					zap.String("tier", string(k.Tier)),
					zap.Int("page", k.Page),
					zap.Uint64("gen", fl.gen),
					zap.Uint64("latest", s.gen),
				)
			}
			close(fl.done)
			continue
		}

		// Settled and fresh.
		snap := s.snapshot()
		c.mu.Unlock()
		return snap, snap.Err
	}
}

// Invalidate marks (tier, page) stale so the next List refetches it. The
// mark is synchronous: a List issued after Invalidate returns is
// guaranteed to observe post-mutation data. Unvisited pages of the same
// tier are left alone and refresh lazily when next requested.
func (c *Coordinator) Invalidate(tier model.Tier, page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[Key{Tier: tier, Page: page}]
	if !ok {
		return
	}
	s.stale = true
	c.log.Debug("cache: invalidated", zap.String("tier", string(tier)), zap.Int("page", page))
}

// Peek returns the current entry without triggering a fetch. ok is false
// when nothing was ever requested for the key.
func (c *Coordinator) Peek(tier model.Tier, page int) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[Key{Tier: tier, Page: page}]
	if !ok {
		return Entry{}, false
	}
	return s.snapshot(), true
}
