// Package reconcile repairs calendar aggregates that drifted from the
// trade ledger.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/journal"
)

var ErrPassInProgress = errors.New("reconciliation pass already running for owner")

type Action string

const (
	NoAction   Action = "none"
	Update     Action = "update"
	ClearStats Action = "clear_stats"
	Delete     Action = "delete"
	// Skipped means the row changed or vanished under the repair. The next
	// pass picks it up again.
	Skipped Action = "skipped"
	Failed  Action = "failed"
)

// Store is the part of the ledger the reconciler needs.
type Store interface {
	journal.TradeStore
	journal.AggregateStore
}

// Request scopes one pass. An empty range covers every day of the owner.
type Request struct {
	Owner  string
	Range  journal.DateRange
	DryRun bool
}

// DayResult is the plan, and unless dry-running the outcome, for one day.
type DayResult struct {
	Date           string
	Classification Classification
	Action         Action
	Stored         journal.DayStats
	Actual         journal.DayStats
	Err            string
}

// Report summarizes a pass. In a dry run Deleted and Updated count the
// planned repairs.
type Report struct {
	Owner       string
	DryRun      bool
	IssuesFound int
	Deleted     int
	Updated     int
	Skipped     int
	Errors      []string
	Days        []DayResult
}

func (r *Report) record(d DayResult) {
	if d.Classification != Valid && d.Classification != "" {
		r.IssuesFound++
	}
	switch d.Action {
	case Delete:
		r.Deleted++
	case Update, ClearStats:
		r.Updated++
	case Skipped:
		r.Skipped++
	case Failed:
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %s", d.Date, d.Err))
	}
	r.Days = append(r.Days, d)
}

// Reconciler recomputes aggregates from trades and applies the repair
// policy. At most one pass per owner runs at a time.
type Reconciler struct {
	store Store
	cal   journal.Calendar
	log   *zap.Logger

	mu      sync.Mutex
	running map[string]bool
}

func New(store Store, cal journal.Calendar, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, cal: cal, log: log, running: map[string]bool{}}
}

// Run reconciles every candidate day of req.Owner in req.Range. A failing
// day is reported and the pass moves on; cancellation is checked between
// days, and days already repaired stay repaired.
func (r *Reconciler) Run(ctx context.Context, req Request) (Report, error) {
	rep := Report{Owner: req.Owner, DryRun: req.DryRun}
	if req.Owner == "" {
		return rep, errors.New("owner is required")
	}
	for _, d := range []string{req.Range.From, req.Range.To} {
		if d == "" {
			continue
		}
		if _, err := journal.ParseDay(d); err != nil {
			return rep, err
		}
	}

	if !r.acquire(req.Owner) {
		return rep, ErrPassInProgress
	}
	defer r.release(req.Owner)

	days, err := r.candidates(ctx, req)
	if err != nil {
		return rep, err
	}

	log := r.log.With(zap.String("owner", req.Owner), zap.Bool("dry_run", req.DryRun))
	log.Info("reconciliation started", zap.Int("candidates", len(days)))

	for _, agg := range days {
		if err := ctx.Err(); err != nil {
			log.Warn("reconciliation cancelled", zap.Int("done", len(rep.Days)))
			return rep, err
		}
		d := r.reconcileDay(ctx, agg, req.DryRun)
		if d.Classification != Valid && d.Action != Failed {
			log.Info("day reconciled",
				zap.String("date", d.Date),
				zap.String("classification", string(d.Classification)),
				zap.String("action", string(d.Action)),
			)
		}
		if d.Action == Failed {
			log.Error("day repair failed", zap.String("date", d.Date), zap.String("error", d.Err))
		}
		rep.record(d)
	}

	log.Info("reconciliation finished",
		zap.Int("issues", rep.IssuesFound),
		zap.Int("deleted", rep.Deleted),
		zap.Int("updated", rep.Updated),
		zap.Int("skipped", rep.Skipped),
		zap.Int("errors", len(rep.Errors)),
	)
	return rep, nil
}

// RefreshDay is the write-time recompute run after trades are added to a
// day. It records fresh stats when the day has trades and otherwise applies
// the normal repair policy to whatever row exists.
func (r *Reconciler) RefreshDay(ctx context.Context, owner, date string) (DayResult, error) {
	start, end, err := r.cal.Bounds(date)
	if err != nil {
		return DayResult{}, err
	}
	trades, err := r.store.QueryTradesByOwnerDay(ctx, owner, start, end)
	if err != nil {
		return DayResult{}, fmt.Errorf("load trades for %s: %w", date, err)
	}

	if len(trades) > 0 {
		actual := Recompute(trades)
		if err := r.store.RecordDayStats(ctx, owner, date, actual); err != nil {
			return DayResult{}, fmt.Errorf("record stats for %s: %w", date, err)
		}
		return DayResult{Date: date, Classification: Valid, Action: Update, Actual: actual}, nil
	}

	agg, err := r.store.GetAggregate(ctx, owner, date)
	if errors.Is(err, journal.ErrNotFound) {
		return DayResult{Date: date, Classification: Valid, Action: NoAction}, nil
	}
	if err != nil {
		return DayResult{}, err
	}
	d := r.reconcileDay(ctx, agg, false)
	if d.Action == Failed {
		return d, errors.New(d.Err)
	}
	return d, nil
}

func (r *Reconciler) candidates(ctx context.Context, req Request) ([]journal.DayAggregate, error) {
	withStats, err := r.store.ListAggregatesWithStats(ctx, req.Owner, req.Range)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	empty, err := r.store.ListEmptyAggregates(ctx, req.Owner, req.Range)
	if err != nil {
		return nil, fmt.Errorf("list empty aggregates: %w", err)
	}

	days := append(withStats, empty...)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

func (r *Reconciler) reconcileDay(ctx context.Context, agg journal.DayAggregate, dryRun bool) DayResult {
	d := DayResult{Date: agg.Date, Stored: agg.DayStats, Action: NoAction}

	start, end, err := r.cal.Bounds(agg.Date)
	if err != nil {
		return failed(d, err)
	}
	trades, err := r.store.QueryTradesByOwnerDay(ctx, agg.Owner, start, end)
	if err != nil {
		return failed(d, fmt.Errorf("load trades: %w", err))
	}
	d.Actual = Recompute(trades)
	d.Classification = Classify(agg, d.Actual)

	var apply func() error
	switch d.Classification {
	case OrphanedStats:
		if agg.HasContent() {
			d.Action = ClearStats
			apply = func() error {
				return r.store.UpdateAggregateStats(ctx, agg.Owner, agg.Date, agg.UpdatedAt, journal.DayStats{})
			}
		} else {
			d.Action = Delete
			apply = func() error { return r.store.DeleteAggregate(ctx, agg.Owner, agg.Date, agg.UpdatedAt) }
		}
	case EmptyRow:
		d.Action = Delete
		apply = func() error { return r.store.DeleteAggregate(ctx, agg.Owner, agg.Date, agg.UpdatedAt) }
	case InconsistentData:
		d.Action = Update
		apply = func() error {
			return r.store.UpdateAggregateStats(ctx, agg.Owner, agg.Date, agg.UpdatedAt, d.Actual)
		}
	default:
		return d
	}

	if dryRun {
		return d
	}
	if err := apply(); err != nil {
		if errors.Is(err, journal.ErrAggregateChanged) {
			r.log.Info("aggregate changed under repair, skipping",
				zap.String("owner", agg.Owner),
				zap.String("date", agg.Date),
			)
			d.Action = Skipped
			return d
		}
		return failed(d, fmt.Errorf("%s: %w", d.Action, err))
	}
	return d
}

func failed(d DayResult, err error) DayResult {
	d.Action = Failed
	d.Err = err.Error()
	return d
}

func (r *Reconciler) acquire(owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[owner] {
		return false
	}
	r.running[owner] = true
	return true
}

func (r *Reconciler) release(owner string) {
	r.mu.Lock()
	delete(r.running, owner)
	r.mu.Unlock()
}
