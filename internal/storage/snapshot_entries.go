package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// Save replaces the persisted snapshot with the given cache export in one
// transaction.
func (s *SnapshotStore) Save(ctx context.Context, entries []query.DumpEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cache_entries (key, segments, value, fetched_at, stale)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		value, valErr := json.Marshal(e.Value)
		if valErr != nil {
			return fmt.Errorf("failed to encode value for %s: %w", e.Key.String(), valErr)
		}
		segments, segErr := json.Marshal(e.Key.Segments())
		if segErr != nil {
			return fmt.Errorf("failed to encode key %s: %w", e.Key.String(), segErr)
		}

		if _, err := stmt.ExecContext(ctx,
			e.Key.String(), string(segments), string(value), e.FetchedAt.UTC(), e.Stale); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.Key.String(), err)
		}
	}

	return tx.Commit()
}

// Load returns the persisted entries whose fetch time is within maxAge,
// deleting expired rows as it goes. A non-positive maxAge keeps everything.
func (s *SnapshotStore) Load(ctx context.Context, maxAge time.Duration) ([]Entry, error) {
	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge).UTC()
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE fetched_at < ?`, cutoff); err != nil {
			return nil, fmt.Errorf("failed to expire old entries: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT segments, value, fetched_at, stale
		FROM cache_entries
		ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			segmentsJSON string
			value        string
			fetchedAt    time.Time
			stale        bool
		)
		if err := rows.Scan(&segmentsJSON, &value, &fetchedAt, &stale); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		var segments []string
		if err := json.Unmarshal([]byte(segmentsJSON), &segments); err != nil {
			return nil, fmt.Errorf("failed to decode key segments: %w", err)
		}

		entries = append(entries, Entry{
			Key:       query.KeyFromSegments(segments),
			Value:     []byte(value),
			FetchedAt: fetchedAt,
			Stale:     stale,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return entries, nil
}

// DecodeFunc reconstructs a typed cache value from a persisted entry.
type DecodeFunc func(key query.Key, raw []byte) (any, error)

// Restore seeds the cache store from the persisted snapshot. Entries the
// decoder no longer recognizes, and entries the store rejects as too old,
// are skipped with a warning rather than failing the warm start. Entries
// persisted as stale come back stale.
func (s *SnapshotStore) Restore(ctx context.Context, store *query.Store, maxAge time.Duration, decode DecodeFunc) (restored, skipped int, err error) {
	entries, err := s.Load(ctx, maxAge)
	if err != nil {
		return 0, 0, err
	}

	for _, e := range entries {
		value, decErr := decode(e.Key, e.Value)
		if decErr != nil {
			slog.Warn("Skipping snapshot entry", "key", e.Key.String(), "error", decErr)
			skipped++
			continue
		}
		if !store.Seed(e.Key, value, e.FetchedAt) {
			skipped++
			continue
		}
		if e.Stale {
			store.Invalidate(e.Key)
		}
		restored++
	}

	return restored, skipped, nil
}

// Stats summarizes the persisted snapshot without loading its values.
func (s *SnapshotStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(stale), 0) FROM cache_entries
	`).Scan(&stats.Entries, &stats.StaleCount)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read snapshot stats: %w", err)
	}
	if stats.Entries == 0 {
		return stats, nil
	}

	// The driver only maps fetched_at to time.Time when the result column
	// carries the table's declared type, which MIN/MAX expressions drop.
	err = s.db.QueryRowContext(ctx, `
		SELECT fetched_at FROM cache_entries ORDER BY fetched_at ASC LIMIT 1
	`).Scan(&stats.OldestFetch)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read oldest fetch time: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT fetched_at FROM cache_entries ORDER BY fetched_at DESC LIMIT 1
	`).Scan(&stats.NewestFetch)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read newest fetch time: %w", err)
	}
	return stats, nil
}

// Clear deletes every persisted entry.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}
