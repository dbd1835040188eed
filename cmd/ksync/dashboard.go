package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kakeibolab/kakeibo-sync/internal/budget"
	"github.com/kakeibolab/kakeibo-sync/internal/cli"
	"github.com/kakeibolab/kakeibo-sync/internal/model"
)

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the current month's budget overview",
		Long: `Compose the month's transactions, active subscriptions, and categories
into a single overview. Constituents load concurrently and come from the
cache when it is fresh.`,
		RunE: runDashboard,
	}

	// Flags
	cmd.Flags().Bool("refresh", false, "Bypass the cache and refetch everything")
	cmd.Flags().IntP("recent", "n", 5, "Number of recent transactions to list")

	// Bind to viper
	_ = viper.BindPFlag("dashboard.refresh", cmd.Flags().Lookup("refresh"))
	_ = viper.BindPFlag("dashboard.recent", cmd.Flags().Lookup("recent"))

	return cmd
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	load := app.service.Dashboard
	if viper.GetBool("dashboard.refresh") {
		load = app.service.RefetchDashboard
	}

	d, err := load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dashboard: %w", err)
	}

	fmt.Println(cli.RenderBox(cli.ChartIcon+" "+d.MonthLabel(), dashboardSummary(d)))
	printRecentTransactions(d, viper.GetInt("dashboard.recent"))

	return nil
}

func dashboardSummary(d budget.Dashboard) string {
	lines := []string{
		fmt.Sprintf("%-14s %s", "Income", cli.SuccessStyle.Render("+"+cli.FormatMoney(d.Income))),
		fmt.Sprintf("%-14s %s", "Expenses", cli.ErrorStyle.Render("-"+cli.FormatMoney(d.Expense))),
		fmt.Sprintf("%-14s %s", "Net", cli.BoldStyle.Render(cli.FormatMoney(d.Net()))),
		"",
		fmt.Sprintf("%-14s %d this month", "Transactions", d.Transactions.Count),
		fmt.Sprintf("%-14s %d active (%s/mo, %s/yr)", "Subscriptions",
			len(d.Subscriptions), cli.FormatMoney(d.Costs.Monthly), cli.FormatMoney(d.Costs.Yearly)),
		fmt.Sprintf("%-14s %d active", "Categories", len(d.Categories)),
	}

	return strings.Join(lines, "\n")
}

func printRecentTransactions(d budget.Dashboard, limit int) {
	txs := d.Transactions.Transactions
	if limit <= 0 || len(txs) == 0 {
		return
	}
	if len(txs) > limit {
		txs = txs[:limit]
	}

	fmt.Println(cli.SubtleStyle.Render(cli.CoinIcon + " Recent transactions"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	fmt.Fprintln(w, strings.Join([]string{
		headerStyle.Render("DATE"),
		headerStyle.Render("DESCRIPTION"),
		headerStyle.Render("AMOUNT"),
	}, "\t"))

	for _, tx := range txs {
		amount := cli.ErrorStyle.Render("-" + cli.FormatMoney(tx.Amount))
		if tx.Type == model.FlowIncome {
			amount = cli.SuccessStyle.Render("+" + cli.FormatMoney(tx.Amount))
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", tx.TransactionDate, transactionLabel(tx), amount)
	}

	_ = w.Flush()
}

func transactionLabel(tx model.Transaction) string {
	if tx.Description != nil && *tx.Description != "" {
		return *tx.Description
	}
	return fmt.Sprintf("transaction #%d", tx.ID)
}
