package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tradejournal/journal"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func closed(pnl string) journal.Trade {
	exit := time.Date(2025, 7, 18, 15, 0, 0, 0, time.UTC)
	return journal.Trade{ExitTime: &exit, NetPnL: dec(pnl)}
}

func TestRecompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		trades []journal.Trade
		want   journal.DayStats
	}{
		{
			name: "no trades",
			want: journal.DayStats{},
		},
		{
			name:   "wins and losses",
			trades: []journal.Trade{closed("20"), closed("-5.50"), closed("12.25")},
			want: journal.DayStats{
				DailyPnL: dec("26.75"), TradesCount: 3, WinningTrades: 2, LosingTrades: 1, WinRate: dec("66.67"),
			},
		},
		{
			name:   "breakeven is neither",
			trades: []journal.Trade{closed("0"), closed("-1")},
			want: journal.DayStats{
				DailyPnL: dec("-1"), TradesCount: 2, LosingTrades: 1, WinRate: dec("0"),
			},
		},
		{
			name:   "open trades only",
			trades: []journal.Trade{{}, {}},
			want:   journal.DayStats{DailyPnL: dec("0"), TradesCount: 2},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Recompute(tt.trades)
			assert.Equal(t, tt.want.TradesCount, got.TradesCount)
			assert.Equal(t, tt.want.WinningTrades, got.WinningTrades)
			assert.Equal(t, tt.want.LosingTrades, got.LosingTrades)
			assertNullDecimal(t, tt.want.DailyPnL, got.DailyPnL)
			assertNullDecimal(t, tt.want.WinRate, got.WinRate)
		})
	}
}

func assertNullDecimal(t *testing.T, want, got decimal.NullDecimal) {
	t.Helper()
	if assert.Equal(t, want.Valid, got.Valid) && want.Valid {
		assert.True(t, want.Decimal.Equal(got.Decimal), "want %s, got %s", want.Decimal, got.Decimal)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	actual := Recompute([]journal.Trade{closed("20"), closed("-5")})

	tests := []struct {
		name   string
		agg    journal.DayAggregate
		actual journal.DayStats
		want   Classification
	}{
		{
			name:   "orphaned count",
			agg:    journal.DayAggregate{DayStats: journal.DayStats{TradesCount: 3}},
			actual: journal.DayStats{},
			want:   OrphanedStats,
		},
		{
			name:   "orphaned pnl only",
			agg:    journal.DayAggregate{DayStats: journal.DayStats{DailyPnL: dec("50")}},
			actual: journal.DayStats{},
			want:   OrphanedStats,
		},
		{
			name:   "diary only",
			agg:    journal.DayAggregate{Diary: journal.Diary{Notes: "quiet"}},
			actual: journal.DayStats{},
			want:   Valid,
		},
		{
			name:   "empty row",
			agg:    journal.DayAggregate{DayStats: journal.DayStats{DailyPnL: dec("0")}},
			actual: journal.DayStats{},
			want:   EmptyRow,
		},
		{
			name:   "matches",
			agg:    journal.DayAggregate{DayStats: actual},
			actual: actual,
			want:   Valid,
		},
		{
			name: "pnl within tolerance",
			agg: journal.DayAggregate{DayStats: journal.DayStats{
				DailyPnL: dec("15.01"), TradesCount: 2, WinningTrades: 1, LosingTrades: 1, WinRate: dec("50"),
			}},
			actual: actual,
			want:   Valid,
		},
		{
			name: "pnl drift",
			agg: journal.DayAggregate{DayStats: journal.DayStats{
				DailyPnL: dec("15.02"), TradesCount: 2, WinningTrades: 1, LosingTrades: 1, WinRate: dec("50"),
			}},
			actual: actual,
			want:   InconsistentData,
		},
		{
			name: "count drift",
			agg: journal.DayAggregate{DayStats: journal.DayStats{
				DailyPnL: dec("15"), TradesCount: 3, WinningTrades: 1, LosingTrades: 1, WinRate: dec("50"),
			}},
			actual: actual,
			want:   InconsistentData,
		},
		{
			name: "missing win rate",
			agg: journal.DayAggregate{DayStats: journal.DayStats{
				DailyPnL: dec("15"), TradesCount: 2, WinningTrades: 1, LosingTrades: 1,
			}},
			actual: actual,
			want:   InconsistentData,
		},
		{
			name:   "stats missing entirely",
			agg:    journal.DayAggregate{Diary: journal.Diary{Mood: "tired"}},
			actual: actual,
			want:   InconsistentData,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.agg, tt.actual))
		})
	}
}
