package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/journal"
)

const (
	// MatchWindow bounds the fuzzy search on either side of the entry time.
	MatchWindow = 5 * time.Minute
	// PriceTolerance bounds the fuzzy search as a fraction of the entry price.
	PriceTolerance = 0.001
	// MaxMatches caps the fuzzy search result set.
	MaxMatches = 5

	highTimeDiff   = 60 * time.Second
	mediumTimeDiff = 300 * time.Second
)

// Price limits are percentages compared exactly, so a match sitting on a
// limit gets the tier the limit names.
var (
	priceTolerance = decimal.NewFromFloat(PriceTolerance)
	highPricePct   = decimal.RequireFromString("0.01")
	mediumPricePct = decimal.RequireFromString("0.1")
	hundred        = decimal.NewFromInt(100)
)

type Tier string

const (
	Exact  Tier = "EXACT"
	High   Tier = "HIGH"
	Medium Tier = "MEDIUM"
	Low    Tier = "LOW"
	None   Tier = "NONE"
)

func (t Tier) Confidence() float64 {
	switch t {
	case Exact:
		return 1.0
	case High:
		return 0.9
	case Medium:
		return 0.7
	case Low:
		return 0.3
	default:
		return 0.0
	}
}

// Blocking reports whether a non-forced insert at this tier is refused.
func (t Tier) Blocking() bool {
	return t == Exact || t == High
}

// Classification is the advisory verdict for a candidate trade.
type Classification struct {
	Tier        Tier
	Confidence  float64
	Reason      string
	Fingerprint string

	// Match is the closest existing trade, nil for None.
	Match        *journal.Trade
	TimeDiff     time.Duration
	PriceDiffPct float64
}

// Resolver classifies candidates against the ledger. It only reads.
type Resolver struct {
	trades journal.TradeStore
	cal    journal.Calendar
	log    *zap.Logger
}

func NewResolver(trades journal.TradeStore, cal journal.Calendar, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{trades: trades, cal: cal, log: log}
}

// Fingerprint returns the candidate's fingerprint in the resolver's calendar.
func (r *Resolver) Fingerprint(t journal.Trade) string {
	return Fingerprint(KeyFor(r.cal, t))
}

// Classify looks the candidate up by fingerprint and, failing that, runs the
// bounded near-match search. Store failures are returned, never read as None.
func (r *Resolver) Classify(ctx context.Context, candidate journal.Trade) (Classification, error) {
	candidate.Symbol = NormalizeSymbol(candidate.Symbol)
	fp := r.Fingerprint(candidate)

	existing, err := r.trades.FindTradeByFingerprint(ctx, candidate.Owner, fp)
	switch {
	case err == nil:
		return Classification{
			Tier:        Exact,
			Confidence:  Exact.Confidence(),
			Reason:      "identical normalized fields",
			Fingerprint: fp,
			Match:       &existing,
		}, nil
	case !errors.Is(err, journal.ErrNotFound):
		return Classification{}, fmt.Errorf("fingerprint lookup: %w", err)
	}

	matches, err := r.trades.QueryTradesByOwnerTimeWindow(ctx, windowFor(candidate))
	if err != nil {
		return Classification{}, fmt.Errorf("near-match query: %w", err)
	}
	if len(matches) == 0 {
		return Classification{
			Tier:        None,
			Confidence:  None.Confidence(),
			Reason:      "no similar trade",
			Fingerprint: fp,
		}, nil
	}

	closest := matches[0]
	timeDiff := absDuration(candidate.EntryTime.Sub(closest.EntryTime))
	pct := priceDiffPct(candidate.EntryPrice, closest.EntryPrice)
	pricePct := pct.InexactFloat64()
	tier := tierFor(timeDiff, pct)

	r.log.Debug("near match",
		zap.String("owner", candidate.Owner),
		zap.String("symbol", candidate.Symbol),
		zap.String("tier", string(tier)),
		zap.String("match_id", closest.ID),
		zap.Duration("time_diff", timeDiff),
		zap.Float64("price_diff_pct", pricePct),
		zap.Int("candidates", len(matches)),
	)

	return Classification{
		Tier:       tier,
		Confidence: tier.Confidence(),
		Reason: fmt.Sprintf("%s %s x%g entered %s apart, price %.4f%% apart",
			closest.Symbol, closest.Side, closest.Quantity, timeDiff, pricePct),
		Fingerprint:  fp,
		Match:        &closest,
		TimeDiff:     timeDiff,
		PriceDiffPct: pricePct,
	}, nil
}

func windowFor(c journal.Trade) journal.WindowQuery {
	price := decimal.NewFromFloat(c.EntryPrice)
	band := price.Abs().Mul(priceTolerance)
	return journal.WindowQuery{
		Owner:    c.Owner,
		Symbol:   c.Symbol,
		Side:     c.Side,
		Quantity: c.Quantity,
		Around:   c.EntryTime,
		From:     c.EntryTime.Add(-MatchWindow),
		To:       c.EntryTime.Add(MatchWindow),
		MinPrice: price.Sub(band).InexactFloat64(),
		MaxPrice: price.Add(band).InexactFloat64(),
		Limit:    MaxMatches,
	}
}

// priceDiffPct is |candidate-existing| as a percentage of the candidate.
func priceDiffPct(candidate, existing float64) decimal.Decimal {
	c := decimal.NewFromFloat(candidate)
	if c.IsZero() {
		return decimal.Zero
	}
	return c.Sub(decimal.NewFromFloat(existing)).Abs().Div(c.Abs()).Mul(hundred)
}

func tierFor(timeDiff time.Duration, pricePct decimal.Decimal) Tier {
	switch {
	case timeDiff <= highTimeDiff && pricePct.LessThanOrEqual(highPricePct):
		return High
	case timeDiff <= mediumTimeDiff && pricePct.LessThanOrEqual(mediumPricePct):
		return Medium
	default:
		return Low
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
