// Package cache holds the in-process TTL store used in front of the
// livescore provider.
package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"
)

// ErrNilLoader is returned by GetOrLoad when no loader is supplied.
var ErrNilLoader = errors.New("cache loader is required")

type item struct {
	value    any
	deadline time.Time
}

func (it item) expired(now time.Time) bool {
	return !it.deadline.IsZero() && !now.Before(it.deadline)
}

// Stats is a point-in-time view of store usage.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Store is an in-process TTL cache. Expired items are dropped lazily on
// read, and concurrent loads of one key are collapsed into a single call.
// A non-positive ttl keeps items until they are deleted.
type Store struct {
	ttl   time.Duration
	clock func() time.Time

	mu    sync.RWMutex
	items map[string]item
	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:   ttl,
		clock: time.Now,
		items: make(map[string]item),
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if ok && it.expired(s.clock()) {
		s.evict(key, it.deadline)
		ok = false
	}
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return it.value, true
}

// evict removes key only if it still holds the expired item that was read,
// so a concurrent Set is never undone.
func (s *Store) evict(key string, deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.items[key]; ok && current.deadline.Equal(deadline) {
		delete(s.items, key)
	}
}

func (s *Store) Set(_ context.Context, key string, value any) {
	if key == "" {
		return
	}

	it := item{value: value}
	if s.ttl > 0 {
		it.deadline = s.clock().Add(s.ttl)
	}

	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
}

// DeletePrefix drops every key starting with prefix. An empty prefix is a
// no-op rather than a full flush.
func (s *Store) DeletePrefix(_ context.Context, prefix string) {
	if prefix == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
		}
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Stats() Stats {
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: s.Len(),
	}
}

// GetOrLoad returns the cached value for key, or runs loader once on behalf
// of every concurrent caller. Loader errors are returned to all waiters and
// never stored. An empty key bypasses the cache.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, ErrNilLoader
	}
	if key == "" {
		return loader(ctx)
	}
	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		// A previous flight may have filled the key between Get and Do.
		s.mu.RLock()
		it, ok := s.items[key]
		s.mu.RUnlock()
		if ok && !it.expired(s.clock()) {
			return it.value, nil
		}

		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	return value, err
}
