package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kakeibolab/kakeibo-sync/internal/cli"
	"github.com/kakeibolab/kakeibo-sync/internal/config"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the cache snapshot",
		Long: `Work with the on-disk cache snapshot directly, without touching the
server.`,
		Example: `  # See what the snapshot holds
  ksync cache stats

  # Drop the snapshot and start cold
  ksync cache clear`,
	}

	cmd.AddCommand(cacheStatsCmd())
	cmd.AddCommand(cacheClearCmd())

	return cmd
}

func cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show snapshot contents and age",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			snapshots, err := openSnapshotStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = snapshots.Close() }()

			stats, err := snapshots.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to read snapshot stats: %w", err)
			}

			if stats.Entries == 0 {
				fmt.Println(cli.SubtleStyle.Render("Snapshot is empty. Run 'ksync warm' to fill it."))
				return nil
			}

			var size int64
			if fi, statErr := os.Stat(snapshots.Path()); statErr == nil {
				size = fi.Size()
			}

			content := strings.Join([]string{
				fmt.Sprintf("%-10s %d (%d stale)", "Entries", stats.Entries, stats.StaleCount),
				fmt.Sprintf("%-10s %s", "Oldest", formatRelativeTime(stats.OldestFetch)),
				fmt.Sprintf("%-10s %s", "Newest", formatRelativeTime(stats.NewestFetch)),
				fmt.Sprintf("%-10s %s", "Size", formatFileSize(size)),
				fmt.Sprintf("%-10s %s", "Path", snapshots.Path()),
			}, "\n")

			fmt.Println(cli.RenderBox("Cache Snapshot", content))

			return nil
		},
	}
}

func cacheClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every entry from the snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			snapshots, err := openSnapshotStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = snapshots.Close() }()

			if !force {
				reader := cli.NewNonBlockingReader(os.Stdin)
				ok, confirmErr := cli.Confirm(ctx, os.Stdout, reader, "Clear the cache snapshot?", false)
				if confirmErr != nil {
					return confirmErr
				}
				if !ok {
					fmt.Println(cli.SubtleStyle.Render("Clear cancelled."))
					return nil
				}
			}

			if err := snapshots.Clear(ctx); err != nil {
				return fmt.Errorf("failed to clear snapshot: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Cache snapshot cleared."))

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}
