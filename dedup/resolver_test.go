package dedup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradejournal/journal"
)

var entry = time.Date(2025, 7, 18, 14, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *journal.SQLite {
	t.Helper()

	s, err := journal.NewSQLite(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mnq(at time.Time, price float64) journal.Trade {
	return journal.Trade{
		Owner:      "user-1",
		Symbol:     "MNQU5",
		Side:       journal.Long,
		Quantity:   1,
		EntryTime:  at,
		EntryPrice: price,
	}
}

func seed(t *testing.T, s *journal.SQLite, r *Resolver, tr journal.Trade) journal.Trade {
	t.Helper()
	tr.Fingerprint = r.Fingerprint(tr)
	require.NoError(t, s.InsertTrade(context.Background(), &tr))
	return tr
}

func TestClassifyNoneOnEmptyLedger(t *testing.T) {
	t.Parallel()

	r := NewResolver(newTestStore(t), journal.Calendar{}, nil)
	c, err := r.Classify(context.Background(), mnq(entry, 23219.25))
	require.NoError(t, err)
	assert.Equal(t, None, c.Tier)
	assert.Equal(t, 0.0, c.Confidence)
	assert.Nil(t, c.Match)
	assert.NotEmpty(t, c.Fingerprint)
}

func TestClassifyExact(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := NewResolver(s, journal.Calendar{}, nil)
	first := seed(t, s, r, mnq(entry, 23219.25))

	// Later the same day, lowercase symbol: still the same fill.
	cand := mnq(entry.Add(3*time.Hour), 23219.25)
	cand.Symbol = "mnqu5"

	c, err := r.Classify(context.Background(), cand)
	require.NoError(t, err)
	assert.Equal(t, Exact, c.Tier)
	assert.Equal(t, 1.0, c.Confidence)
	require.NotNil(t, c.Match)
	assert.Equal(t, first.ID, c.Match.ID)
}

func TestClassifyHighWithinAMinute(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := NewResolver(s, journal.Calendar{}, nil)
	first := seed(t, s, r, mnq(entry, 23219.25))

	c, err := r.Classify(context.Background(), mnq(entry.Add(40*time.Second), 23219.30))
	require.NoError(t, err)
	assert.Equal(t, High, c.Tier)
	assert.Equal(t, 0.9, c.Confidence)
	require.NotNil(t, c.Match)
	assert.Equal(t, first.ID, c.Match.ID)
	assert.Equal(t, 40*time.Second, c.TimeDiff)
	assert.InDelta(t, 0.000215, c.PriceDiffPct, 0.000001)
}

func TestClassifyTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		delta time.Duration
		price float64
		want  Tier
	}{
		{"high at boundary", 60 * time.Second, 23219.30, High},
		{"medium by time", 2 * time.Minute, 23219.30, Medium},
		{"medium by price", 30 * time.Second, 23225.00, Medium},
		{"medium at five minutes", -5 * time.Minute, 23219.30, Medium},
		{"outside time window", 5*time.Minute + time.Second, 23219.30, None},
		{"outside price window", 30 * time.Second, 23250.00, None},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestStore(t)
			r := NewResolver(s, journal.Calendar{}, nil)
			seed(t, s, r, mnq(entry, 23219.25))

			c, err := r.Classify(context.Background(), mnq(entry.Add(tt.delta), tt.price))
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Tier)
			assert.Equal(t, tt.want.Confidence(), c.Confidence)
		})
	}
}

func TestClassifyPriceLimitsAreInclusive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		delta     time.Duration
		existing  float64
		candidate float64
		want      Tier
	}{
		{"high at 0.01% above", 0, 100.01, 100.00, High},
		{"high at 0.01% below", 0, 99.99, 100.00, High},
		{"medium past 0.01%", 0, 100.02, 100.00, Medium},
		{"medium at 0.1% above", 2 * time.Minute, 1001, 1000, Medium},
		{"medium at 0.1% below", 2 * time.Minute, 999, 1000, Medium},
		{"medium at 0.1% above large price", 2 * time.Minute, 6306.3, 6300, Medium},
		{"medium at 0.1% below large price", 2 * time.Minute, 6293.7, 6300, Medium},
		{"medium at 0.1% small price", -2 * time.Minute, 250.25, 250, Medium},
		{"none past 0.1%", 2 * time.Minute, 1001.01, 1000, None},
		{"none past 0.1% below", 2 * time.Minute, 998.99, 1000, None},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestStore(t)
			r := NewResolver(s, journal.Calendar{}, nil)
			seed(t, s, r, mnq(entry, tt.existing))

			c, err := r.Classify(context.Background(), mnq(entry.Add(tt.delta), tt.candidate))
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Tier, "price diff %v%%", c.PriceDiffPct)
		})
	}
}

func TestClassifyPicksNearestMatch(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := NewResolver(s, journal.Calendar{}, nil)
	seed(t, s, r, mnq(entry.Add(-4*time.Minute), 23219.50))
	near := seed(t, s, r, mnq(entry.Add(20*time.Second), 23219.75))

	c, err := r.Classify(context.Background(), mnq(entry, 23219.25))
	require.NoError(t, err)
	assert.Equal(t, High, c.Tier)
	assert.Equal(t, near.ID, c.Match.ID)
}

func TestClassifyIgnoresOtherOwnersAndShapes(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := NewResolver(s, journal.Calendar{}, nil)

	other := mnq(entry.Add(10*time.Second), 23219.30)
	other.Owner = "user-2"
	seed(t, s, r, other)

	short := mnq(entry.Add(10*time.Second), 23219.30)
	short.Side = journal.Short
	seed(t, s, r, short)

	bigger := mnq(entry.Add(10*time.Second), 23219.30)
	bigger.Quantity = 2
	seed(t, s, r, bigger)

	c, err := r.Classify(context.Background(), mnq(entry, 23219.25))
	require.NoError(t, err)
	assert.Equal(t, None, c.Tier)
}

func TestTierForIsMonotonic(t *testing.T) {
	t.Parallel()

	rank := map[Tier]int{High: 3, Medium: 2, Low: 1}
	times := []time.Duration{0, 30 * time.Second, 60 * time.Second, 61 * time.Second, 300 * time.Second, 301 * time.Second}
	var prices []decimal.Decimal
	for _, p := range []string{"0", "0.005", "0.01", "0.011", "0.1", "0.11"} {
		prices = append(prices, decimal.RequireFromString(p))
	}

	for i := range times {
		for j := range prices {
			here := rank[tierFor(times[i], prices[j])]
			if i+1 < len(times) {
				assert.GreaterOrEqual(t, here, rank[tierFor(times[i+1], prices[j])])
			}
			if j+1 < len(prices) {
				assert.GreaterOrEqual(t, here, rank[tierFor(times[i], prices[j+1])])
			}
		}
	}
}

type failingStore struct {
	journal.TradeStore
	findErr   error
	windowErr error
}

func (f failingStore) FindTradeByFingerprint(context.Context, string, string) (journal.Trade, error) {
	if f.findErr != nil {
		return journal.Trade{}, f.findErr
	}
	return journal.Trade{}, journal.ErrNotFound
}

func (f failingStore) QueryTradesByOwnerTimeWindow(context.Context, journal.WindowQuery) ([]journal.Trade, error) {
	return nil, f.windowErr
}

func TestClassifyPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk on fire")

	r := NewResolver(failingStore{findErr: boom}, journal.Calendar{}, nil)
	_, err := r.Classify(context.Background(), mnq(entry, 23219.25))
	assert.ErrorIs(t, err, boom)

	r = NewResolver(failingStore{windowErr: boom}, journal.Calendar{}, nil)
	_, err = r.Classify(context.Background(), mnq(entry, 23219.25))
	assert.ErrorIs(t, err, boom)
}
