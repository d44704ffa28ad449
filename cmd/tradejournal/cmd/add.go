package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/ingest"
	"github.com/rustyeddy/tradejournal/journal"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a single trade by hand",
	Long: `Add one trade to the ledger.

EXACT and HIGH duplicates are refused unless --force is given; MEDIUM matches
are written with a warning.

Examples:
  tradejournal add --symbol MNQU5 --side long --qty 1 \
    --entry-time 2025-07-18T14:30:00Z --entry-price 23219.25
  tradejournal add --symbol ESU5 --side short --qty 2 \
    --entry-time "2025-07-18 16:00:00" --entry-price 6300 \
    --exit-time "2025-07-18 16:10:00" --exit-price 6290 --pnl 40`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify a trade against the ledger without writing it",
	Long: `Report the duplicate tier a trade would get if it were added.

Example:
  tradejournal check --symbol MNQU5 --side long --qty 1 \
    --entry-time 2025-07-18T14:30:40Z --entry-price 23219.30`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// tradeFlags are shared by add and check.
type tradeFlags struct {
	symbol     string
	side       string
	qty        float64
	entryTime  string
	entryPrice float64
	exitTime   string
	exitPrice  float64
	pnl        string
	tag        string
}

func (f *tradeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "instrument symbol (required)")
	cmd.Flags().StringVar(&f.side, "side", "", "long or short (required)")
	cmd.Flags().Float64Var(&f.qty, "qty", 0, "quantity (required)")
	cmd.Flags().StringVar(&f.entryTime, "entry-time", "", "entry time, RFC3339 or \"YYYY-MM-DD HH:MM:SS\" UTC (required)")
	cmd.Flags().Float64Var(&f.entryPrice, "entry-price", 0, "entry price (required)")
	cmd.Flags().StringVar(&f.exitTime, "exit-time", "", "exit time")
	cmd.Flags().Float64Var(&f.exitPrice, "exit-price", 0, "exit price")
	cmd.Flags().StringVar(&f.pnl, "pnl", "", "net P&L of the closed trade")
	cmd.Flags().StringVar(&f.tag, "tag", "manual", "source tag")
	for _, name := range []string{"symbol", "side", "qty", "entry-time", "entry-price"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (f *tradeFlags) trade(owner string) (journal.Trade, error) {
	side, err := journal.ParseSide(f.side)
	if err != nil {
		return journal.Trade{}, err
	}
	entry, err := journal.ParseTime(f.entryTime)
	if err != nil {
		return journal.Trade{}, fmt.Errorf("entry-time: %w", err)
	}

	t := journal.Trade{
		Owner:      owner,
		Symbol:     f.symbol,
		Side:       side,
		Quantity:   f.qty,
		EntryTime:  entry,
		EntryPrice: f.entryPrice,
		SourceTag:  f.tag,
	}
	if f.exitTime != "" {
		exit, err := journal.ParseTime(f.exitTime)
		if err != nil {
			return journal.Trade{}, fmt.Errorf("exit-time: %w", err)
		}
		t.ExitTime = &exit
	}
	if f.exitPrice != 0 {
		p := f.exitPrice
		t.ExitPrice = &p
	}
	if strings.TrimSpace(f.pnl) != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(f.pnl))
		if err != nil {
			return journal.Trade{}, fmt.Errorf("pnl: %w", err)
		}
		t.NetPnL = decimal.NewNullDecimal(d)
	}
	return t, nil
}

var (
	addFlags   tradeFlags
	addForce   bool
	checkFlags tradeFlags
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(checkCmd)

	addFlags.register(addCmd)
	addCmd.Flags().BoolVar(&addForce, "force", false, "insert even if the trade is a duplicate")
	checkFlags.register(checkCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.owner()
	if err != nil {
		return err
	}
	t, err := addFlags.trade(owner)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	res, err := a.gate().Accept(cmd.Context(), t, addForce)
	var conflict *ingest.DuplicateConflict
	if errors.As(err, &conflict) {
		fmt.Fprintf(out, "✗ %s duplicate (confidence %.1f): %s\n", conflict.Tier, conflict.Confidence, conflict.Reason)
		if conflict.Matched != nil {
			fmt.Fprintln(out, journal.FormatTradeOrg(*conflict.Matched))
		}
		fmt.Fprintln(out, "Re-run with --force to add it anyway.")
		return err
	}
	if err != nil {
		return err
	}

	if res.Warning != "" {
		fmt.Fprintf(out, "! %s\n", res.Warning)
	}
	fmt.Fprintln(out, journal.FormatTradeOrg(res.Trade))

	return a.refreshDays(cmd.Context(), []journal.Trade{res.Trade})
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.owner()
	if err != nil {
		return err
	}
	t, err := checkFlags.trade(owner)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}

	c, err := a.resolver().Classify(cmd.Context(), t)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (confidence %.1f): %s\n", c.Tier, c.Confidence, c.Reason)
	fmt.Fprintf(out, "fingerprint: %s\n", c.Fingerprint)
	if c.Match != nil {
		fmt.Fprintln(out, journal.FormatTradeOrg(*c.Match))
	}
	return nil
}
