package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryTradesByOwnerTimeWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	base := time.Date(2025, 7, 18, 14, 0, 0, 0, time.UTC)

	// Eight trades at -4m..+3m around base, plus noise that must be filtered.
	for i := -4; i < 4; i++ {
		tr := sampleTrade("O", fmt.Sprintf("fp%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, j.InsertTrade(ctx, &tr))
	}
	noise := []Trade{
		sampleTrade("O", "far", base.Add(10*time.Minute)),
		sampleTrade("P", "owner", base),
	}
	short := sampleTrade("O", "side", base)
	short.Side = Short
	noise = append(noise, short)
	pricey := sampleTrade("O", "price", base)
	pricey.EntryPrice = 24000
	noise = append(noise, pricey)
	for i := range noise {
		require.NoError(t, j.InsertTrade(ctx, &noise[i]))
	}

	got, err := j.QueryTradesByOwnerTimeWindow(ctx, WindowQuery{
		Owner:    "O",
		Symbol:   "MNQU5",
		Side:     Long,
		Quantity: 1,
		Around:   base.Add(10 * time.Second),
		From:     base.Add(-5 * time.Minute),
		To:       base.Add(5 * time.Minute),
		MinPrice: 23200,
		MaxPrice: 23240,
		Limit:    5,
	})
	require.NoError(t, err)
	require.Len(t, got, 5)

	// Nearest first: 0m, +1m, -1m, +2m, -2m
	want := []string{"fp0", "fp1", "fp-1", "fp2", "fp-2"}
	for i, w := range want {
		assert.Equal(t, w, got[i].Fingerprint, "position %d", i)
	}
}

func TestQueryTradesByOwnerTimeWindowNeedsLimit(t *testing.T) {
	t.Parallel()
	j, _ := newTestSQLite(t)

	_, err := j.QueryTradesByOwnerTimeWindow(context.Background(), WindowQuery{Owner: "O"})
	assert.Error(t, err)
}

func TestQueryTradesByOwnerDayHalfOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	start := time.Date(2025, 7, 18, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	times := map[string]time.Time{
		"before": start.Add(-time.Nanosecond),
		"first":  start,
		"last":   end.Add(-time.Nanosecond),
		"after":  end,
	}
	for fp, ts := range times {
		tr := sampleTrade("O", fp, ts)
		require.NoError(t, j.InsertTrade(ctx, &tr))
	}

	got, err := j.QueryTradesByOwnerDay(ctx, "O", start, end)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Fingerprint)
	assert.Equal(t, "last", got[1].Fingerprint)
}

func TestAggregateUpsertAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	agg := DayAggregate{
		Owner: "O",
		Date:  "2025-07-18",
		DayStats: DayStats{
			DailyPnL:      decimal.NewNullDecimal(decimal.RequireFromString("50.00")),
			TradesCount:   3,
			WinningTrades: 2,
			LosingTrades:  1,
			WinRate:       decimal.NewNullDecimal(decimal.RequireFromString("66.67")),
		},
		Diary: Diary{Notes: "great day", Mood: "calm", Images: []string{"a.png", "b.png"}},
	}
	require.NoError(t, j.UpsertAggregate(ctx, agg))

	got, err := j.GetAggregate(ctx, "O", "2025-07-18")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TradesCount)
	assert.True(t, got.DailyPnL.Decimal.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, "great day", got.Notes)
	assert.Equal(t, []string{"a.png", "b.png"}, got.Images)

	_, err = j.GetAggregate(ctx, "O", "2025-07-19")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordDayStatsKeepsDiary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.SaveDiary(ctx, "O", "2025-07-18", Diary{Notes: "pre-market plan"}))
	require.NoError(t, j.RecordDayStats(ctx, "O", "2025-07-18", DayStats{
		DailyPnL:    decimal.NewNullDecimal(decimal.NewFromInt(10)),
		TradesCount: 1,
	}))

	got, err := j.GetAggregate(ctx, "O", "2025-07-18")
	require.NoError(t, err)
	assert.Equal(t, "pre-market plan", got.Notes)
	assert.Equal(t, 1, got.TradesCount)

	// A later diary save leaves the stats alone.
	require.NoError(t, j.SaveDiary(ctx, "O", "2025-07-18", Diary{Notes: "review", Mood: "tired"}))
	got, err = j.GetAggregate(ctx, "O", "2025-07-18")
	require.NoError(t, err)
	assert.Equal(t, "review", got.Notes)
	assert.Equal(t, 1, got.TradesCount)
}

func TestUpdateAggregateStatsVanished(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	err := j.UpdateAggregateStats(ctx, "O", "2025-07-18", time.Time{}, DayStats{})
	assert.ErrorIs(t, err, ErrAggregateChanged)
}

func TestDeleteAggregateRefusesDiaryContent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.UpsertAggregate(ctx, DayAggregate{
		Owner:    "O",
		Date:     "2025-07-18",
		DayStats: DayStats{TradesCount: 2},
		Diary:    Diary{Notes: "keep me"},
	}))
	kept, err := j.GetAggregate(ctx, "O", "2025-07-18")
	require.NoError(t, err)
	assert.ErrorIs(t, j.DeleteAggregate(ctx, "O", "2025-07-18", kept.UpdatedAt), ErrAggregateChanged)

	require.NoError(t, j.UpsertAggregate(ctx, DayAggregate{
		Owner:    "O",
		Date:     "2025-07-19",
		DayStats: DayStats{TradesCount: 2},
	}))
	gone, err := j.GetAggregate(ctx, "O", "2025-07-19")
	require.NoError(t, err)
	assert.NoError(t, j.DeleteAggregate(ctx, "O", "2025-07-19", gone.UpdatedAt))
	assert.ErrorIs(t, j.DeleteAggregate(ctx, "O", "2025-07-19", gone.UpdatedAt), ErrAggregateChanged)
}

func TestGuardedWritesRejectRewrittenRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.RecordDayStats(ctx, "O", "2025-07-18", DayStats{TradesCount: 2}))
	stale, err := j.GetAggregate(ctx, "O", "2025-07-18")
	require.NoError(t, err)

	// Another writer records fresh stats after the read.
	require.NoError(t, j.RecordDayStats(ctx, "O", "2025-07-18", DayStats{TradesCount: 3}))
	fresh, err := j.GetAggregate(ctx, "O", "2025-07-18")
	require.NoError(t, err)
	assert.True(t, fresh.UpdatedAt.After(stale.UpdatedAt))

	assert.ErrorIs(t, j.DeleteAggregate(ctx, "O", "2025-07-18", stale.UpdatedAt), ErrAggregateChanged)
	assert.ErrorIs(t, j.UpdateAggregateStats(ctx, "O", "2025-07-18", stale.UpdatedAt, DayStats{}), ErrAggregateChanged)

	got, err := j.GetAggregate(ctx, "O", "2025-07-18")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TradesCount)

	require.NoError(t, j.UpdateAggregateStats(ctx, "O", "2025-07-18", fresh.UpdatedAt, DayStats{TradesCount: 4}))
	got, err = j.GetAggregate(ctx, "O", "2025-07-18")
	require.NoError(t, err)
	assert.Equal(t, 4, got.TradesCount)
	assert.True(t, got.UpdatedAt.After(fresh.UpdatedAt))
}

func TestListAggregates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	rows := []DayAggregate{
		{Owner: "O", Date: "2025-07-14", DayStats: DayStats{TradesCount: 1}},
		{Owner: "O", Date: "2025-07-15", DayStats: DayStats{DailyPnL: decimal.NewNullDecimal(decimal.NewFromInt(5))}},
		{Owner: "O", Date: "2025-07-16", DayStats: DayStats{DailyPnL: decimal.NewNullDecimal(decimal.Zero)}},
		{Owner: "O", Date: "2025-07-17", Diary: Diary{Notes: "diary only"}},
		{Owner: "O", Date: "2025-07-18"},
		{Owner: "P", Date: "2025-07-15", DayStats: DayStats{TradesCount: 4}},
	}
	for _, r := range rows {
		require.NoError(t, j.UpsertAggregate(ctx, r))
	}

	withStats, err := j.ListAggregatesWithStats(ctx, "O", DateRange{})
	require.NoError(t, err)
	require.Len(t, withStats, 2)
	assert.Equal(t, "2025-07-14", withStats[0].Date)
	assert.Equal(t, "2025-07-15", withStats[1].Date)

	ranged, err := j.ListAggregatesWithStats(ctx, "O", Single("2025-07-15"))
	require.NoError(t, err)
	require.Len(t, ranged, 1)

	empty, err := j.ListEmptyAggregates(ctx, "O", DateRange{From: "2025-07-16"})
	require.NoError(t, err)
	require.Len(t, empty, 2)
	assert.Equal(t, "2025-07-16", empty[0].Date)
	assert.Equal(t, "2025-07-18", empty[1].Date)
}
