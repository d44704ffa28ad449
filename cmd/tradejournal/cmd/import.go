package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/ingest"
	"github.com/rustyeddy/tradejournal/journal"
)

var importCmd = &cobra.Command{
	Use:   "import <export.csv>",
	Short: "Import trades from a broker CSV export",
	Long: `Run every row of a broker CSV export through the duplicate checks.

Rows already in the ledger are reported and skipped, so re-importing an
overlapping export is safe. Calendar stats are refreshed for every day that
received a trade.

The header must name at least: symbol, side, quantity, entry_time, entry_price.
Optional: exit_time, exit_price, net_pnl.

Examples:
  tradejournal import ./exports/2025-07.csv
  tradejournal import --tag july-rerun --force ./exports/2025-07.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importTag   string
	importForce bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importTag, "tag", "t", "", "source tag for imported trades (default <journal.source_tag>:<file name>)")
	importCmd.Flags().BoolVar(&importForce, "force", false, "insert duplicates anyway, flagged as forced")
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.owner()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	tag := importTag
	if tag == "" {
		tag = a.cfg.Journal.SourceTag + ":" + filepath.Base(args[0])
	}
	src, err := journal.NewCSVReader(f, owner, tag)
	if err != nil {
		return fmt.Errorf("read export: %w", err)
	}

	ctx := cmd.Context()
	rep, batchErr := a.gate().AcceptBatch(ctx, src, importForce)

	out := cmd.OutOrStdout()
	for _, o := range rep.Outcomes {
		switch o.Status {
		case ingest.Accepted:
			continue
		case ingest.Warned:
			fmt.Fprintf(out, "line %d: warning: %s\n", o.Line, o.Message)
		default:
			fmt.Fprintf(out, "line %d: %s: %s\n", o.Line, o.Status, o.Message)
		}
	}
	fmt.Fprintf(out, "%d accepted, %d with warnings, %d duplicates, %d invalid\n",
		rep.Accepted, rep.Warned, rep.Duplicates, rep.Invalid)

	return a.settleImport(ctx, rep, batchErr)
}

// settleImport refreshes the days of every row the batch wrote, even when the
// batch was interrupted, and puts the batch error ahead of any refresh error.
func (a *app) settleImport(ctx context.Context, rep ingest.BatchReport, batchErr error) error {
	refreshErr := a.refreshDays(context.WithoutCancel(ctx), rep.Written())
	if batchErr != nil {
		return fmt.Errorf("import stopped: %w", errors.Join(batchErr, refreshErr))
	}
	return refreshErr
}
