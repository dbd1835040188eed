// Package query owns client-side data consistency: a keyed cache store with
// staleness and eviction windows, deduplicated fetches with retry, and
// optimistic mutations with snapshot rollback.
package query

import (
	"sync"
	"time"
)

// Default retention windows.
const (
	// DefaultStaleAfter is how long a fetched value counts as fresh.
	DefaultStaleAfter = 5 * time.Minute
	// DefaultEvictAfter is how long a value is kept in memory at all, so a
	// consumer coming back can render last known good data while a refetch
	// runs.
	DefaultEvictAfter = 30 * time.Minute
)

// EventType says what happened to a key.
type EventType string

// Store event types.
const (
	EventSet        EventType = "set"
	EventInvalidate EventType = "invalidate"
	EventDelete     EventType = "delete"
)

// Event notifies subscribers that a key's cached state changed.
type Event struct {
	Key  Key
	Type EventType
}

// Lookup is the result of a cache probe.
type Lookup struct {
	Value     any
	FetchedAt time.Time
	Found     bool
	Stale     bool
}

// Stats summarizes store activity.
type Stats struct {
	Entries       int
	Hits          int64
	StaleHits     int64
	Misses        int64
	Invalidations int64
	Evictions     int64
}

// entry is one cached slot.
type entry struct {
	value      any
	fetchedAt  time.Time
	lastAccess time.Time
	key        Key
	stale      bool
}

// Store is the in-memory cache every query and mutation works against.
//
// Values in the store are treated as immutable: writers always replace a
// slot with a freshly built value and never modify one already stored.
// Snapshot and Restore rely on that discipline; it is what makes rollback
// after a failed mutation exact.
type Store struct {
	entries     map[string]*entry
	subscribers map[int]chan Event
	stopCh      chan struct{}
	staleAfter  time.Duration
	evictAfter  time.Duration
	nextSubID   int
	stats       Stats
	closeOnce   sync.Once
	mu          sync.RWMutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStaleAfter overrides the freshness window.
func WithStaleAfter(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithEvictAfter overrides the in-memory retention window.
func WithEvictAfter(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.evictAfter = d
		}
	}
}

// NewStore creates a cache store and starts its janitor goroutine. Call
// Close when done with it.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries:     make(map[string]*entry),
		subscribers: make(map[int]chan Event),
		stopCh:      make(chan struct{}),
		staleAfter:  DefaultStaleAfter,
		evictAfter:  DefaultEvictAfter,
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.janitor()

	return s
}

// Lookup probes the cache. A value past the eviction window counts as a
// miss and is dropped; a value past the staleness window (or explicitly
// invalidated) is returned with Stale set so the caller can revalidate.
func (s *Store) Lookup(key Key) Lookup {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.String()]
	if !ok {
		s.stats.Misses++
		cacheEvents.WithLabelValues("miss").Inc()
		return Lookup{}
	}

	if now.Sub(e.fetchedAt) > s.evictAfter {
		delete(s.entries, key.String())
		s.stats.Evictions++
		s.stats.Misses++
		cacheEvents.WithLabelValues("eviction").Inc()
		cacheEvents.WithLabelValues("miss").Inc()
		return Lookup{}
	}

	e.lastAccess = now
	stale := e.stale || now.Sub(e.fetchedAt) > s.staleAfter
	if stale {
		s.stats.StaleHits++
		cacheEvents.WithLabelValues("stale_hit").Inc()
	} else {
		s.stats.Hits++
		cacheEvents.WithLabelValues("hit").Inc()
	}

	return Lookup{Value: e.value, FetchedAt: e.fetchedAt, Found: true, Stale: stale}
}

// Set stores a freshly fetched value under key, clearing any staleness.
func (s *Store) Set(key Key, value any) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key.String()] = &entry{
		value:      value,
		fetchedAt:  now,
		lastAccess: now,
		key:        key,
	}
	cacheEvents.WithLabelValues("set").Inc()
	s.notifyLocked(Event{Key: key, Type: EventSet})
}

// Seed inserts a value with an explicit fetch time, used when warming the
// cache from a persisted snapshot. Staleness falls out of the given age. It
// reports whether the entry was accepted; entries already past the evict
// window are dropped.
func (s *Store) Seed(key Key, value any, fetchedAt time.Time) bool {
	if time.Since(fetchedAt) > s.evictAfter {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key.String()] = &entry{
		value:      value,
		fetchedAt:  fetchedAt,
		lastAccess: time.Now(),
		key:        key,
	}
	s.notifyLocked(Event{Key: key, Type: EventSet})
	return true
}

// Invalidate marks one key stale so its next read revalidates. It reports
// whether the key was present.
func (s *Store) Invalidate(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.String()]
	if !ok {
		return false
	}
	e.stale = true
	s.stats.Invalidations++
	cacheEvents.WithLabelValues("invalidation").Inc()
	s.notifyLocked(Event{Key: key, Type: EventInvalidate})
	return true
}

// InvalidatePrefix marks every key under prefix stale and returns how many
// were touched. Invalidating an entity's root key reaches all of its list
// variants and details.
func (s *Store) InvalidatePrefix(prefix Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := 0
	for _, e := range s.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.stale = true
		touched++
		s.stats.Invalidations++
		cacheEvents.WithLabelValues("invalidation").Inc()
		s.notifyLocked(Event{Key: e.key, Type: EventInvalidate})
	}
	return touched
}

// Delete removes a key outright, reporting whether it was present.
func (s *Store) Delete(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key.String()]; !ok {
		return false
	}
	delete(s.entries, key.String())
	s.notifyLocked(Event{Key: key, Type: EventDelete})
	return true
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		s.notifyLocked(Event{Key: e.key, Type: EventDelete})
	}
	s.entries = make(map[string]*entry)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// KeysWithPrefix returns the keys of every live entry under prefix. Used by
// optimistic mutations that must rewrite all cached variants of a list.
func (s *Store) KeysWithPrefix(prefix Key) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []Key
	for _, e := range s.entries {
		if e.key.HasPrefix(prefix) {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Stats returns a copy of the store's counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.Entries = len(s.entries)
	return stats
}

// Subscribe registers for change events. Events are delivered best-effort:
// a subscriber that falls behind its buffer misses events rather than
// blocking the store. The returned cancel function releases the
// subscription.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close stops the janitor and releases all subscriptions.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		defer s.mu.Unlock()
		for id, sub := range s.subscribers {
			delete(s.subscribers, id)
			close(sub)
		}
	})
}

func (s *Store) notifyLocked(event Event) {
	for _, sub := range s.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// janitor drops entries past the eviction window so an idle process does
// not hold stale data forever.
func (s *Store) janitor() {
	interval := s.evictAfter / 4
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Store) evictExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if now.Sub(e.fetchedAt) > s.evictAfter {
			delete(s.entries, id)
			s.stats.Evictions++
			cacheEvents.WithLabelValues("eviction").Inc()
			s.notifyLocked(Event{Key: e.key, Type: EventDelete})
		}
	}
}
