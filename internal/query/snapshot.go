package query

import "time"

// Snapshot captures the exact cached state of a set of keys, including
// which of them did not exist, so a failed mutation can put back precisely
// what was there.
type Snapshot struct {
	items []snapshotItem
}

type snapshotItem struct {
	value     any
	fetchedAt time.Time
	key       Key
	existed   bool
	stale     bool
}

// Keys returns the keys the snapshot covers.
func (s Snapshot) Keys() []Key {
	keys := make([]Key, len(s.items))
	for i, item := range s.items {
		keys[i] = item.key
	}
	return keys
}

// Snapshot records the current state of the given keys. Values are captured
// by reference, which is exact under the store's immutable-value discipline:
// an optimistic apply replaces slot values, it never rewrites them in place.
func (s *Store) Snapshot(keys ...Key) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{items: make([]snapshotItem, 0, len(keys))}
	for _, key := range keys {
		item := snapshotItem{key: key}
		if e, ok := s.entries[key.String()]; ok {
			item.existed = true
			item.value = e.value
			item.fetchedAt = e.fetchedAt
			item.stale = e.stale
		}
		snap.items = append(snap.items, item)
	}
	return snap
}

// Restore rewinds every snapshotted key to its captured state. Keys that
// did not exist at capture time are deleted; keys that did get their value,
// fetch time, and staleness back exactly.
func (s *Store) Restore(snap Snapshot) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range snap.items {
		id := item.key.String()
		if !item.existed {
			if _, ok := s.entries[id]; ok {
				delete(s.entries, id)
				s.notifyLocked(Event{Key: item.key, Type: EventDelete})
			}
			continue
		}
		s.entries[id] = &entry{
			value:      item.value,
			fetchedAt:  item.fetchedAt,
			lastAccess: now,
			key:        item.key,
			stale:      item.stale,
		}
		s.notifyLocked(Event{Key: item.key, Type: EventSet})
	}
}

// DumpEntry is one live slot exported for persistence.
type DumpEntry struct {
	FetchedAt time.Time
	Value     any
	Key       Key
	Stale     bool
}

// Dump exports every live entry so a snapshot store can persist the cache
// across restarts.
func (s *Store) Dump() []DumpEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dump := make([]DumpEntry, 0, len(s.entries))
	for _, e := range s.entries {
		dump = append(dump, DumpEntry{
			Key:       e.key,
			Value:     e.value,
			FetchedAt: e.fetchedAt,
			Stale:     e.stale,
		})
	}
	return dump
}

// Segments exposes the key's path for persistence layers that need to
// reconstruct typed values from dumped entries.
func (k Key) Segments() []string {
	out := make([]string, len(k.segments))
	copy(out, k.segments)
	return out
}

// KeyFromSegments rebuilds a key from its dumped path.
func KeyFromSegments(segments []string) Key {
	in := make([]string, len(segments))
	copy(in, segments)
	return Key{segments: in}
}
