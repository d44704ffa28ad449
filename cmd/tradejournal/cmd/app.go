package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/config"
	"github.com/rustyeddy/tradejournal/dedup"
	"github.com/rustyeddy/tradejournal/ingest"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/logger"
	"github.com/rustyeddy/tradejournal/reconcile"
)

// app holds what every command opens from the global flags.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	cal   journal.Calendar
	store *journal.SQLite
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(cfgFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Journal.DBPath = dbPath
	}
	return cfg, cfg.Validate()
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	cal, err := cfg.NewCalendar()
	if err != nil {
		return nil, err
	}
	store, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return &app{cfg: cfg, log: log, cal: cal, store: store}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
	_ = a.log.Sync()
}

func (a *app) owner() (string, error) {
	if ownerFlag != "" {
		return ownerFlag, nil
	}
	if o := a.cfg.DefaultOwner(); o != "" {
		return o, nil
	}
	return "", errors.New("no owner: pass --owner or set owners in the config")
}

func (a *app) resolver() *dedup.Resolver {
	return dedup.NewResolver(a.store, a.cal, a.log.Named("dedup"))
}

func (a *app) gate() *ingest.Gate {
	return ingest.NewGate(a.store, a.resolver(), a.log.Named("ingest"))
}

func (a *app) reconciler() *reconcile.Reconciler {
	return reconcile.New(a.store, a.cal, a.log.Named("reconcile"))
}

// refreshDays recomputes the calendar stats of every day the trades landed on.
func (a *app) refreshDays(ctx context.Context, trades []journal.Trade) error {
	type ownerDay struct{ owner, day string }
	seen := map[ownerDay]bool{}
	var days []ownerDay
	for _, t := range trades {
		k := ownerDay{t.Owner, a.cal.Day(t.EntryTime)}
		if !seen[k] {
			seen[k] = true
			days = append(days, k)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].day < days[j].day })

	rec := a.reconciler()
	for _, d := range days {
		if _, err := rec.RefreshDay(ctx, d.owner, d.day); err != nil {
			return fmt.Errorf("refresh %s: %w", d.day, err)
		}
	}
	return nil
}
