package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/reconcile"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run reconciliation on the configured cron schedule",
	Long: `Stay in the foreground and reconcile every configured owner on
reconcile.schedule, covering the last reconcile.lookback_days days.
Stop with Ctrl-C; a pass in progress is allowed to finish.

Example:
  tradejournal schedule --config journal.yaml`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var scheduleSpec string

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleSpec, "spec", "", "cron spec with seconds (overrides reconcile.schedule)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	spec := a.cfg.Reconcile.Schedule
	if scheduleSpec != "" {
		spec = scheduleSpec
	}
	if spec == "" {
		return errors.New("no schedule: set reconcile.schedule or pass --spec")
	}

	owners := a.cfg.Owners
	if ownerFlag != "" {
		owners = []string{ownerFlag}
	}
	if len(owners) == 0 {
		return errors.New("no owners to reconcile")
	}

	ctx := cmd.Context()
	s := reconcile.NewScheduler(ctx, a.reconciler(), a.log.Named("cron"))
	for _, owner := range owners {
		if _, err := s.Add(spec, owner, a.cfg.Reconcile.LookbackDays); err != nil {
			return fmt.Errorf("schedule %q: %w", spec, err)
		}
	}

	a.log.Info("reconciliation scheduled",
		zap.String("spec", spec),
		zap.Strings("owners", owners),
		zap.Int("lookback_days", a.cfg.Reconcile.LookbackDays),
	)
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}
