package ingest

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/tradejournal/dedup"
	"github.com/rustyeddy/tradejournal/journal"
)

var ErrInvalidTrade = errors.New("invalid trade")

// DuplicateConflict is returned instead of writing when the candidate is
// already in the ledger. Callers may resubmit with force.
type DuplicateConflict struct {
	Tier       dedup.Tier
	Confidence float64
	Reason     string
	Matched    *journal.Trade
}

func (c *DuplicateConflict) Error() string {
	if c.Matched == nil {
		return fmt.Sprintf("duplicate trade (%s %.1f): %s", c.Tier, c.Confidence, c.Reason)
	}
	return fmt.Sprintf("duplicate trade (%s %.1f) of %s: %s", c.Tier, c.Confidence, c.Matched.ID, c.Reason)
}

// MatchedTradeID returns the id of the trade the candidate collided with.
func (c *DuplicateConflict) MatchedTradeID() string {
	if c.Matched == nil {
		return ""
	}
	return c.Matched.ID
}

// StorageError wraps any ledger failure met while admitting a trade.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsConflict reports whether err carries a DuplicateConflict.
func IsConflict(err error) bool {
	var c *DuplicateConflict
	return errors.As(err, &c)
}
