package reconcile

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/journal"
)

// Scheduler runs reconciliation passes on a cron schedule. Specs carry a
// seconds field, e.g. "0 30 2 * * *".
type Scheduler struct {
	cron    *cron.Cron
	rec     *Reconciler
	log     *zap.Logger
	baseCtx context.Context
}

func NewScheduler(baseCtx context.Context, rec *Reconciler, log *zap.Logger) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		rec:     rec,
		log:     log,
		baseCtx: baseCtx,
	}
}

// Add schedules a pass for owner covering the trailing lookbackDays
// reporting days, or every day when lookbackDays is zero.
func (s *Scheduler) Add(spec, owner string, lookbackDays int) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		s.runOnce(owner, lookbackDays)
	})
}

func (s *Scheduler) runOnce(owner string, lookbackDays int) {
	req := Request{Owner: owner, Range: LookbackRange(s.rec.cal, time.Now(), lookbackDays)}
	rep, err := s.rec.Run(s.baseCtx, req)
	if err != nil {
		s.log.Warn("scheduled reconciliation did not complete",
			zap.String("owner", owner),
			zap.Error(err),
		)
		return
	}
	s.log.Info("scheduled reconciliation done",
		zap.String("owner", owner),
		zap.Int("issues", rep.IssuesFound),
		zap.Int("errors", len(rep.Errors)),
	)
}

func (s *Scheduler) Start() {
	s.log.Info("cron started", zap.Int("entries", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop waits for running passes to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("cron stopped")
}

// LookbackRange covers the days-1 reporting days before now's day plus that
// day itself. Zero days means unbounded.
func LookbackRange(cal journal.Calendar, now time.Time, days int) journal.DateRange {
	if days <= 0 {
		return journal.DateRange{}
	}
	today := now.In(cal.Location())
	from := time.Date(today.Year(), today.Month(), today.Day()-(days-1), 0, 0, 0, 0, cal.Location())
	return journal.DateRange{From: from.Format(journal.DayLayout), To: cal.Day(now)}
}
