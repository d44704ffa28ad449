// Package ingest admits trades into the ledger.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/dedup"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/pkg/id"
)

// maxForceAttempts bounds suffix retries for a forced insert.
const maxForceAttempts = 3

// Result describes an admitted trade.
type Result struct {
	Trade journal.Trade

	// Classification is the resolver's verdict; zero for forced inserts.
	Classification dedup.Classification
	// Warning is set for MEDIUM matches that were written anyway.
	Warning string
}

// Gate is the only write path for trades. The store's unique index on
// (owner, fingerprint) is what keeps the ledger duplicate free; the resolver
// check in front of it only produces a better rejection.
type Gate struct {
	trades   journal.TradeStore
	resolver *dedup.Resolver
	log      *zap.Logger
}

func NewGate(trades journal.TradeStore, resolver *dedup.Resolver, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{trades: trades, resolver: resolver, log: log}
}

// Accept persists t or explains why it did not. Errors are
// *DuplicateConflict, *StorageError, or wrap ErrInvalidTrade.
func (g *Gate) Accept(ctx context.Context, t journal.Trade, force bool) (Result, error) {
	t.Symbol = dedup.NormalizeSymbol(t.Symbol)
	t.Side = journal.Side(strings.ToUpper(string(t.Side)))
	t.ID = ""
	t.Forced = false
	if err := t.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidTrade, err)
	}

	if force {
		return g.forceInsert(ctx, t)
	}

	c, err := g.resolver.Classify(ctx, t)
	if err != nil {
		return Result{}, &StorageError{Op: "classify", Err: err}
	}
	if c.Tier.Blocking() {
		g.log.Info("trade rejected as duplicate",
			zap.String("owner", t.Owner),
			zap.String("symbol", t.Symbol),
			zap.String("tier", string(c.Tier)),
			zap.String("match_id", c.Match.ID),
		)
		return Result{Classification: c}, &DuplicateConflict{
			Tier:       c.Tier,
			Confidence: c.Confidence,
			Reason:     c.Reason,
			Matched:    c.Match,
		}
	}

	t.Fingerprint = c.Fingerprint
	if err := g.trades.InsertTrade(ctx, &t); err != nil {
		if errors.Is(err, journal.ErrDuplicateFingerprint) {
			// Lost a race with a concurrent insert of the same fill.
			return Result{}, g.exactConflict(ctx, t)
		}
		return Result{}, &StorageError{Op: "insert trade", Err: err}
	}

	res := Result{Trade: t, Classification: c}
	if c.Tier == dedup.Medium {
		res.Warning = fmt.Sprintf("possible duplicate of %s: %s", c.Match.ID, c.Reason)
		g.log.Warn("trade accepted with warning",
			zap.String("id", t.ID),
			zap.String("owner", t.Owner),
			zap.String("match_id", c.Match.ID),
		)
	} else {
		g.log.Debug("trade accepted", zap.String("id", t.ID), zap.String("owner", t.Owner))
	}
	return res, nil
}

// forceInsert skips the resolver. On a fingerprint collision the row is
// written under the base fingerprint plus a monotonic suffix and flagged.
func (g *Gate) forceInsert(ctx context.Context, t journal.Trade) (Result, error) {
	base := g.resolver.Fingerprint(t)
	t.Fingerprint = base

	for attempt := 0; attempt <= maxForceAttempts; attempt++ {
		err := g.trades.InsertTrade(ctx, &t)
		if err == nil {
			g.log.Info("forced trade accepted",
				zap.String("id", t.ID),
				zap.String("owner", t.Owner),
				zap.Bool("suffixed", t.Forced),
			)
			return Result{Trade: t}, nil
		}
		if !errors.Is(err, journal.ErrDuplicateFingerprint) {
			return Result{}, &StorageError{Op: "insert forced trade", Err: err}
		}
		t.ID = ""
		t.Fingerprint = base + ":" + id.New()
		t.Forced = true
	}
	return Result{}, &StorageError{
		Op:  "insert forced trade",
		Err: fmt.Errorf("fingerprint still taken after %d suffixed attempts", maxForceAttempts),
	}
}

func (g *Gate) exactConflict(ctx context.Context, t journal.Trade) error {
	existing, err := g.trades.FindTradeByFingerprint(ctx, t.Owner, t.Fingerprint)
	if err != nil {
		return &StorageError{Op: "load conflicting trade", Err: err}
	}
	g.log.Info("trade rejected by unique index",
		zap.String("owner", t.Owner),
		zap.String("match_id", existing.ID),
	)
	return &DuplicateConflict{
		Tier:       dedup.Exact,
		Confidence: dedup.Exact.Confidence(),
		Reason:     "identical normalized fields",
		Matched:    &existing,
	}
}
