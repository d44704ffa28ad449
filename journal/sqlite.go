package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/tradejournal/pkg/id"
)

// SQLite is the Store backed by a single SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers inside the process; the unique
	// index still arbitrates between processes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

const tradeColumns = `trade_id, owner, symbol, side, quantity, entry_time, entry_price,
	exit_time, exit_price, net_pnl, fingerprint, source_tag, forced, created_at`

func (j *SQLite) InsertTrade(ctx context.Context, t *Trade) error {
	if t.ID == "" {
		t.ID = id.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	var exitTime sql.NullInt64
	if t.ExitTime != nil {
		exitTime = sql.NullInt64{Int64: t.ExitTime.UnixNano(), Valid: true}
	}
	var exitPrice sql.NullFloat64
	if t.ExitPrice != nil {
		exitPrice = sql.NullFloat64{Float64: *t.ExitPrice, Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Owner, t.Symbol, string(t.Side), t.Quantity,
		t.EntryTime.UnixNano(), t.EntryPrice, exitTime, exitPrice, t.NetPnL,
		t.Fingerprint, t.SourceTag, t.Forced, t.CreatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: owner %q fingerprint %s", ErrDuplicateFingerprint, t.Owner, t.Fingerprint)
	}
	return err
}

// GetTrade returns a single trade by ID.
func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (Trade, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE trade_id = ?`, tradeID)

	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Trade{}, fmt.Errorf("trade %q %w", tradeID, ErrNotFound)
	}
	return t, err
}

func (j *SQLite) FindTradeByFingerprint(ctx context.Context, owner, fingerprint string) (Trade, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE owner = ? AND fingerprint = ?`, owner, fingerprint)

	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Trade{}, ErrNotFound
	}
	return t, err
}

// QueryTradesByOwnerTimeWindow runs a bounded range scan and returns at most
// q.Limit trades ordered by distance from q.Around, nearest first.
func (j *SQLite) QueryTradesByOwnerTimeWindow(ctx context.Context, q WindowQuery) ([]Trade, error) {
	if q.Limit <= 0 {
		return nil, errors.New("window query needs a positive limit")
	}
	return j.queryTrades(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE owner = ? AND symbol = ? AND side = ? AND quantity = ?
			AND entry_time BETWEEN ? AND ?
			AND entry_price BETWEEN ? AND ?
		ORDER BY ABS(entry_time - ?) ASC, entry_time ASC, trade_id ASC
		LIMIT ?`,
		q.Owner, q.Symbol, string(q.Side), q.Quantity,
		q.From.UnixNano(), q.To.UnixNano(),
		q.MinPrice, q.MaxPrice,
		q.Around.UnixNano(), q.Limit,
	)
}

func (j *SQLite) QueryTradesByOwnerDay(ctx context.Context, owner string, start, end time.Time) ([]Trade, error) {
	return j.queryTrades(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE owner = ? AND entry_time >= ? AND entry_time < ?
		ORDER BY entry_time ASC, trade_id ASC`,
		owner, start.UnixNano(), end.UnixNano(),
	)
}

func (j *SQLite) queryTrades(ctx context.Context, query string, args ...any) ([]Trade, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (Trade, error) {
	var (
		t         Trade
		side      string
		entryNs   int64
		createdNs int64
		exitNs    sql.NullInt64
		exitPrice sql.NullFloat64
	)
	err := s.Scan(
		&t.ID,
		&t.Owner,
		&t.Symbol,
		&side,
		&t.Quantity,
		&entryNs,
		&t.EntryPrice,
		&exitNs,
		&exitPrice,
		&t.NetPnL,
		&t.Fingerprint,
		&t.SourceTag,
		&t.Forced,
		&createdNs,
	)
	if err != nil {
		return Trade{}, err
	}

	t.Side = Side(side)
	t.EntryTime = time.Unix(0, entryNs).UTC()
	t.CreatedAt = time.Unix(0, createdNs).UTC()
	if exitNs.Valid {
		et := time.Unix(0, exitNs.Int64).UTC()
		t.ExitTime = &et
	}
	if exitPrice.Valid {
		p := exitPrice.Float64
		t.ExitPrice = &p
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint && se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
