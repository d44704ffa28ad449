package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display journal records as Org-mode blocks.

Subcommands:
  trade  - Get details of a specific trade by ID
  today  - Show today's calendar entry and trades
  day    - Show a day's calendar entry and trades

Examples:
  tradejournal journal trade <trade-id>
  tradejournal journal today
  tradejournal journal day 2025-07-18`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's calendar entry and trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "Show a day's calendar entry and trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.store.GetTrade(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return printDay(cmd, a, a.cal.Today())
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	day, err := journal.ParseDay(args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return printDay(cmd, a, day)
}

func printDay(cmd *cobra.Command, a *app, day string) error {
	owner, err := a.owner()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	agg, err := a.store.GetAggregate(ctx, owner, day)
	if errors.Is(err, journal.ErrNotFound) {
		agg = journal.DayAggregate{Owner: owner, Date: day}
	} else if err != nil {
		return fmt.Errorf("get day: %w", err)
	}

	start, end, err := a.cal.Bounds(day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	recs, err := a.store.QueryTradesByOwnerDay(ctx, owner, start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, journal.FormatDayOrg(agg))
	if len(recs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, journal.FormatTradesOrg(recs))
	}
	return nil
}
