// journal/journal.go
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateFingerprint is returned by InsertTrade when the
	// (owner, fingerprint) unique index rejects the row.
	ErrDuplicateFingerprint = errors.New("duplicate trade fingerprint")

	// ErrAggregateChanged is returned by guarded aggregate writes when the
	// row vanished or picked up diary content since it was read.
	ErrAggregateChanged = errors.New("aggregate changed or vanished")
)

type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// ParseSide accepts the spellings brokers use in their exports.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY", "B":
		return Long, nil
	case "SHORT", "SELL", "S", "SELL SHORT":
		return Short, nil
	default:
		return "", fmt.Errorf("unknown side %q (use LONG or SHORT)", s)
	}
}

// Trade is one executed position in the ledger.
type Trade struct {
	ID    string
	Owner string

	Symbol     string
	Side       Side
	Quantity   float64
	EntryTime  time.Time
	EntryPrice float64

	// Exit is nil while the position is open.
	ExitTime  *time.Time
	ExitPrice *float64
	NetPnL    decimal.NullDecimal

	Fingerprint string
	SourceTag   string
	Forced      bool // inserted over a duplicate conflict
	CreatedAt   time.Time
}

// Closed reports whether the trade has an exit.
func (t Trade) Closed() bool {
	return t.ExitTime != nil
}

// Validate checks the fields the ledger requires before a trade can be
// fingerprinted or stored.
func (t Trade) Validate() error {
	switch {
	case strings.TrimSpace(t.Owner) == "":
		return errors.New("owner is required")
	case strings.TrimSpace(t.Symbol) == "":
		return errors.New("symbol is required")
	case t.Side != Long && t.Side != Short:
		return fmt.Errorf("side must be LONG or SHORT, got %q", t.Side)
	case t.Quantity <= 0:
		return errors.New("quantity must be positive")
	case t.EntryPrice <= 0:
		return errors.New("entry price must be positive")
	case t.EntryTime.IsZero():
		return errors.New("entry time is required")
	case t.ExitTime != nil && t.ExitTime.Before(t.EntryTime):
		return errors.New("exit time is before entry time")
	}
	if strings.ContainsAny(t.Owner+t.Symbol, "\x1f\n") {
		return errors.New("owner and symbol must not contain control characters")
	}
	return nil
}

// DayStats holds the derived fields of a calendar day. They must always be
// re-derivable from the trades entered on that day.
type DayStats struct {
	DailyPnL      decimal.NullDecimal
	TradesCount   int
	WinningTrades int
	LosingTrades  int
	WinRate       decimal.NullDecimal
}

// IsZero reports whether every derived field is null or zero.
func (s DayStats) IsZero() bool {
	return s.TradesCount == 0 &&
		s.WinningTrades == 0 &&
		s.LosingTrades == 0 &&
		nullOrZero(s.DailyPnL) &&
		nullOrZero(s.WinRate)
}

// PnL returns the daily P&L with null read as zero.
func (s DayStats) PnL() decimal.Decimal {
	if !s.DailyPnL.Valid {
		return decimal.Zero
	}
	return s.DailyPnL.Decimal
}

func nullOrZero(d decimal.NullDecimal) bool {
	return !d.Valid || d.Decimal.IsZero()
}

// Diary is the free-text content of a calendar day. It is owned by the user
// and never derived from trades.
type Diary struct {
	Notes  string
	Mood   string
	Images []string
}

func (d Diary) HasContent() bool {
	return d.Notes != "" || d.Mood != "" || len(d.Images) > 0
}

// DayAggregate is the denormalized per-(owner, date) calendar row.
type DayAggregate struct {
	Owner string
	Date  string // YYYY-MM-DD in the reporting calendar

	DayStats
	Diary

	UpdatedAt time.Time
}

// DateRange bounds a listing by inclusive YYYY-MM-DD dates. Empty ends are open.
type DateRange struct {
	From string
	To   string
}

// Single returns a range covering one day.
func Single(day string) DateRange {
	return DateRange{From: day, To: day}
}

// WindowQuery selects candidate near-duplicates of a trade.
type WindowQuery struct {
	Owner    string
	Symbol   string
	Side     Side
	Quantity float64

	Around   time.Time // results are ordered by distance from this instant
	From, To time.Time // inclusive entry_time bounds

	MinPrice, MaxPrice float64 // inclusive entry_price bounds
	Limit              int
}

// TradeStore is the trade half of the ledger.
type TradeStore interface {
	// InsertTrade stores t, assigning an id when empty. It returns
	// ErrDuplicateFingerprint when (owner, fingerprint) already exists.
	InsertTrade(ctx context.Context, t *Trade) error
	GetTrade(ctx context.Context, id string) (Trade, error)
	FindTradeByFingerprint(ctx context.Context, owner, fingerprint string) (Trade, error)
	QueryTradesByOwnerTimeWindow(ctx context.Context, q WindowQuery) ([]Trade, error)
	// QueryTradesByOwnerDay returns trades whose entry time is within [start, end).
	QueryTradesByOwnerDay(ctx context.Context, owner string, start, end time.Time) ([]Trade, error)
}

// AggregateStore is the calendar half of the ledger.
type AggregateStore interface {
	GetAggregate(ctx context.Context, owner, date string) (DayAggregate, error)
	UpsertAggregate(ctx context.Context, agg DayAggregate) error
	// RecordDayStats inserts or updates only the derived columns.
	RecordDayStats(ctx context.Context, owner, date string, s DayStats) error
	// UpdateAggregateStats updates the derived columns of a row last written at
	// seen and returns ErrAggregateChanged when the row is gone or was
	// rewritten since.
	UpdateAggregateStats(ctx context.Context, owner, date string, seen time.Time, s DayStats) error
	// SaveDiary inserts or updates only the diary columns.
	SaveDiary(ctx context.Context, owner, date string, d Diary) error
	// DeleteAggregate removes a row last written at seen that carries no
	// diary content and returns ErrAggregateChanged when no such row exists.
	DeleteAggregate(ctx context.Context, owner, date string, seen time.Time) error
	ListAggregatesWithStats(ctx context.Context, owner string, r DateRange) ([]DayAggregate, error)
	// ListEmptyAggregates returns rows with neither derived stats nor diary content.
	ListEmptyAggregates(ctx context.Context, owner string, r DateRange) ([]DayAggregate, error)
}

type Store interface {
	TradeStore
	AggregateStore
	Close() error
}
