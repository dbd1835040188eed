package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kakeibolab/kakeibo-sync/internal/cli"
)

func warmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Prefetch budget data into the cache and snapshot it",
		Long: `Fetch categories, subscriptions, and the current month's transactions so
later commands start warm. The cache is snapshotted to disk afterwards,
including whatever was fetched before an interrupt.`,
		RunE: runWarm,
	}
}

func runWarm(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(os.Stdout)
	ctx := handler.HandleInterrupts(cmd.Context(), true)
	defer app.close(ctx)

	fmt.Println(cli.FormatTitle("Warming the cache..."))

	bar := newWarmBar(3)

	categories, err := app.service.Categories(ctx)
	if err != nil {
		return warmFailed("categories", handler, err)
	}
	_ = bar.Add(1)

	subscriptions, err := app.service.Subscriptions(ctx)
	if err != nil {
		return warmFailed("subscriptions", handler, err)
	}
	_ = bar.Add(1)

	page, err := app.service.CurrentMonthTransactions(ctx)
	if err != nil {
		return warmFailed("transactions", handler, err)
	}
	_ = bar.Add(1)

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Cache warmed: %d categories, %d subscriptions, %d transactions",
		len(categories), len(subscriptions), page.Count)))
	fmt.Println(cli.SubtleStyle.Render("Snapshot: " + app.snapshots.Path()))

	logWarmCounters()

	return nil
}

// warmFailed swallows the error after an interrupt: the friendly message is
// already on screen and the deferred close still snapshots the partial cache.
func warmFailed(resource string, handler *cli.InterruptHandler, err error) error {
	if handler.WasInterrupted() {
		return nil
	}
	return fmt.Errorf("failed to warm %s: %w", resource, err)
}

func newWarmBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Fetching budget data...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

// logWarmCounters reports the client's own counters at debug level so a
// warm run can be checked for unexpected misses or retries.
func logWarmCounters() {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		slog.Debug("Failed to gather metrics", "error", err)
		return
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "kakeibo_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			args := []any{"metric", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				args = append(args, lp.GetName(), lp.GetValue())
			}
			slog.Debug("Warm-up counter", args...)
		}
	}
}
