package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradejournal",
	Short: "A personal trading journal with duplicate-safe imports",
	Long: `Tradejournal keeps a ledger of executed trades and a calendar of daily
stats and diary entries.

It provides tools for:
  - Importing broker CSV exports without double-counting fills
  - Adding trades by hand, with duplicate checks
  - Reconciling calendar stats against the trade ledger
  - Writing diary notes, mood and images for a day
  - Printing trades and days as Org-mode blocks`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	dbPath    string
	ownerFlag string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	// A .env next to the journal may carry TRADEJOURNAL_* settings.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON; defaults apply when empty)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB (overrides journal.db_path)")
	rootCmd.PersistentFlags().StringVarP(&ownerFlag, "owner", "u", "", "journal owner (defaults to the first configured owner)")
}
