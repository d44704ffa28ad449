package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair calendar stats that drifted from the trade ledger",
	Long: `Recompute each calendar day's stats from its trades and repair drift.

Days with stats but no trades have their stats cleared, or are deleted when
they carry no diary content. Days whose stats disagree with their trades are
overwritten. Diary notes, mood and images are never modified.

Use --dry-run to print the plan without writing.

Examples:
  tradejournal reconcile --dry-run
  tradejournal reconcile --date 2025-07-18
  tradejournal reconcile --from 2025-01-01 --to 2025-06-30 --all`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

var (
	reconcileDate   string
	reconcileFrom   string
	reconcileTo     string
	reconcileDryRun bool
	reconcileAll    bool
)

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&reconcileDate, "date", "", "reconcile a single day (YYYY-MM-DD)")
	reconcileCmd.Flags().StringVar(&reconcileFrom, "from", "", "first day of the range (YYYY-MM-DD)")
	reconcileCmd.Flags().StringVar(&reconcileTo, "to", "", "last day of the range (YYYY-MM-DD)")
	reconcileCmd.Flags().BoolVarP(&reconcileDryRun, "dry-run", "n", false, "classify and plan without writing")
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "list valid days too")
	reconcileCmd.MarkFlagsMutuallyExclusive("date", "from")
	reconcileCmd.MarkFlagsMutuallyExclusive("date", "to")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.owner()
	if err != nil {
		return err
	}

	req := reconcile.Request{
		Owner:  owner,
		Range:  journal.DateRange{From: reconcileFrom, To: reconcileTo},
		DryRun: reconcileDryRun,
	}
	if reconcileDate != "" {
		day, err := journal.ParseDay(reconcileDate)
		if err != nil {
			return err
		}
		req.Range = journal.Single(day)
	}

	rep, err := a.reconciler().Run(cmd.Context(), req)
	printReport(cmd.OutOrStdout(), rep, reconcileAll)
	if err != nil {
		return err
	}
	if len(rep.Errors) > 0 {
		return fmt.Errorf("%d days failed to reconcile", len(rep.Errors))
	}
	return nil
}

func printReport(out io.Writer, rep reconcile.Report, all bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tCLASSIFICATION\tACTION\tSTORED\tACTUAL")
	for _, d := range rep.Days {
		if d.Classification == reconcile.Valid && !all {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.Date, d.Classification, d.Action, statsSummary(d.Stored), statsSummary(d.Actual))
	}
	w.Flush()

	mode := ""
	if rep.DryRun {
		mode = " (dry run, nothing written)"
	}
	fmt.Fprintf(out, "\n%s: %d issues, %d deleted, %d updated, %d skipped, %d errors%s\n",
		rep.Owner, rep.IssuesFound, rep.Deleted, rep.Updated, rep.Skipped, len(rep.Errors), mode)
	for _, e := range rep.Errors {
		fmt.Fprintf(out, "  error: %s\n", e)
	}
}

func statsSummary(s journal.DayStats) string {
	return fmt.Sprintf("%d trades %s (%d/%d, %s%%)",
		s.TradesCount, nullString(s.DailyPnL), s.WinningTrades, s.LosingTrades, nullString(s.WinRate))
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}
