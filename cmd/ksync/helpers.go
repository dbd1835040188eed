package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kakeibolab/kakeibo-sync/internal/api"
	"github.com/kakeibolab/kakeibo-sync/internal/budget"
	"github.com/kakeibolab/kakeibo-sync/internal/common"
	"github.com/kakeibolab/kakeibo-sync/internal/config"
	"github.com/kakeibolab/kakeibo-sync/internal/query"
	"github.com/kakeibolab/kakeibo-sync/internal/storage"
)

// app wires the client stack for a single command invocation.
type app struct {
	cfg       *config.Config
	client    *api.Client
	store     *query.Store
	service   *budget.Service
	snapshots *storage.SnapshotStore
}

// newApp loads configuration, builds the cache and client, and restores the
// on-disk snapshot into the cache.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, common.NewUserError(
			"Configuration is invalid. Check ~/.config/ksync/config.yaml and the KAKEIBO_BASE_URL environment variable.", err)
	}

	snapshots, err := openSnapshotStore(ctx, cfg)
	if err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("Cannot open the cache snapshot at %s.", cfg.Cache.SnapshotPath), err)
	}

	store := query.NewStore(
		query.WithStaleAfter(cfg.Cache.StaleAfter),
		query.WithEvictAfter(cfg.Cache.EvictAfter),
	)

	client := api.NewClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.API.Timeout),
	)

	queries := query.NewQueries(store, query.WithRetryOptions(cfg.RetryOptions()))
	service := budget.New(client, queries)

	restored, skipped, err := snapshots.Restore(ctx, store, cfg.Cache.EvictAfter, budget.DecodeSnapshotValue)
	if err != nil {
		slog.Warn("Snapshot restore failed, starting cold", "error", err)
	} else if restored > 0 || skipped > 0 {
		slog.Debug("Snapshot restored", "restored", restored, "skipped", skipped)
	}

	return &app{
		cfg:       cfg,
		client:    client,
		store:     store,
		service:   service,
		snapshots: snapshots,
	}, nil
}

// openSnapshotStore opens the snapshot database and brings its schema up to
// date.
func openSnapshotStore(ctx context.Context, cfg *config.Config) (*storage.SnapshotStore, error) {
	snapshots, err := storage.NewSnapshotStore(cfg.Cache.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	if err := snapshots.Migrate(ctx); err != nil {
		_ = snapshots.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return snapshots, nil
}

// close persists the cache back to the snapshot and releases everything. The
// save runs even when the command's context was canceled, so an interrupted
// run keeps whatever it fetched. A failed save leaves the previous snapshot
// in place.
func (a *app) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	_ = a.client.CancelAll()

	if err := a.snapshots.Save(ctx, a.store.Dump()); err != nil {
		slog.Warn("Failed to save cache snapshot", "error", err)
	}
	if err := a.snapshots.Close(); err != nil {
		slog.Warn("Failed to close snapshot store", "error", err)
	}
	a.store.Close()
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
