package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradejournal/journal"
)

// Tolerance is the largest P&L or win-rate drift still treated as equal.
var Tolerance = decimal.RequireFromString("0.01")

type Classification string

const (
	Valid            Classification = "valid"
	OrphanedStats    Classification = "orphaned_stats"
	InconsistentData Classification = "inconsistent_data"
	// EmptyRow has no stats, no diary and no trades.
	EmptyRow Classification = "empty_row"
)

// Recompute derives a day's stats from the trades entered on it. Wins and
// losses count closed trades only; a win rate needs at least one of them.
func Recompute(trades []journal.Trade) journal.DayStats {
	if len(trades) == 0 {
		return journal.DayStats{}
	}

	pnl := decimal.Zero
	var wins, losses int64
	for _, t := range trades {
		if !t.NetPnL.Valid {
			continue
		}
		pnl = pnl.Add(t.NetPnL.Decimal)
		if !t.Closed() {
			continue
		}
		switch t.NetPnL.Decimal.Sign() {
		case 1:
			wins++
		case -1:
			losses++
		}
	}

	s := journal.DayStats{
		DailyPnL:      decimal.NewNullDecimal(pnl),
		TradesCount:   len(trades),
		WinningTrades: int(wins),
		LosingTrades:  int(losses),
	}
	if decided := wins + losses; decided > 0 {
		rate := decimal.NewFromInt(wins).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(decided)).
			Round(2)
		s.WinRate = decimal.NewNullDecimal(rate)
	}
	return s
}

// Classify compares a stored aggregate against a fresh recomputation from
// the day's trades.
func Classify(agg journal.DayAggregate, actual journal.DayStats) Classification {
	stored := agg.DayStats
	if actual.TradesCount == 0 {
		switch {
		case !stored.IsZero():
			return OrphanedStats
		case !agg.HasContent():
			return EmptyRow
		default:
			return Valid
		}
	}

	if stored.TradesCount != actual.TradesCount ||
		stored.WinningTrades != actual.WinningTrades ||
		stored.LosingTrades != actual.LosingTrades ||
		beyondTolerance(stored.PnL(), actual.PnL()) ||
		drifted(stored.WinRate, actual.WinRate) {
		return InconsistentData
	}
	return Valid
}

// drifted compares win rates; a null rate against a real one is drift.
func drifted(stored, actual decimal.NullDecimal) bool {
	if stored.Valid != actual.Valid {
		return true
	}
	return stored.Valid && beyondTolerance(stored.Decimal, actual.Decimal)
}

func beyondTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(Tolerance)
}
