// Package dedup recognizes trades that are already in the ledger.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradejournal/journal"
)

// sep cannot appear in a validated owner or symbol.
const sep = "\x1f"

// Key holds the normalized fields that identify one logical fill. The entry
// is kept at day granularity so a broker re-export with clock jitter maps to
// the same key.
type Key struct {
	Owner      string
	Symbol     string
	Side       journal.Side
	EntryDay   string
	EntryPrice float64
	Quantity   float64
}

// KeyFor builds the key of t, placing its entry on cal's reporting day.
func KeyFor(cal journal.Calendar, t journal.Trade) Key {
	return Key{
		Owner:      t.Owner,
		Symbol:     t.Symbol,
		Side:       t.Side,
		EntryDay:   cal.Day(t.EntryTime),
		EntryPrice: t.EntryPrice,
		Quantity:   t.Quantity,
	}
}

// Canonical returns the separator-joined normalized form that gets hashed.
func (k Key) Canonical() string {
	return strings.Join([]string{
		k.Owner,
		NormalizeSymbol(k.Symbol),
		strings.ToUpper(string(k.Side)),
		k.EntryDay,
		decimal.NewFromFloat(k.EntryPrice).Round(2).StringFixed(2),
		decimal.NewFromFloat(k.Quantity).String(),
	}, sep)
}

// Fingerprint is the hex SHA-256 of the key's canonical form.
func Fingerprint(k Key) string {
	sum := sha256.Sum256([]byte(k.Canonical()))
	return hex.EncodeToString(sum[:])
}

func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
