package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const aggregateColumns = `owner, date, daily_pnl, trades_count, winning_trades, losing_trades,
	win_rate, notes, mood, images, updated_at`

// hasStatsSQL matches rows with at least one non-zero derived field.
const hasStatsSQL = `(trades_count != 0 OR winning_trades != 0 OR losing_trades != 0
	OR COALESCE(CAST(daily_pnl AS REAL), 0) != 0
	OR COALESCE(CAST(win_rate AS REAL), 0) != 0)`

// bumpUpdatedAt keeps updated_at strictly increasing across rewrites, so a
// guarded write never matches a row rewritten since it was read.
const bumpUpdatedAt = `MAX(calendar_days.updated_at + 1, excluded.updated_at)`

const noDiarySQL = `(notes = '' AND mood = '' AND images IN ('', '[]', 'null'))`

// GetAggregate returns the calendar row for owner and date.
func (j *SQLite) GetAggregate(ctx context.Context, owner, date string) (DayAggregate, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+aggregateColumns+`
		FROM calendar_days
		WHERE owner = ? AND date = ?`, owner, date)

	agg, err := scanAggregate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DayAggregate{}, fmt.Errorf("calendar day %s for %q %w", date, owner, ErrNotFound)
	}
	return agg, err
}

// UpsertAggregate writes the whole row.
func (j *SQLite) UpsertAggregate(ctx context.Context, agg DayAggregate) error {
	images, err := encodeImages(agg.Images)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO calendar_days (`+aggregateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, date) DO UPDATE SET
			daily_pnl = excluded.daily_pnl,
			trades_count = excluded.trades_count,
			winning_trades = excluded.winning_trades,
			losing_trades = excluded.losing_trades,
			win_rate = excluded.win_rate,
			notes = excluded.notes,
			mood = excluded.mood,
			images = excluded.images,
			updated_at = `+bumpUpdatedAt,
		agg.Owner, agg.Date, agg.DailyPnL, agg.TradesCount, agg.WinningTrades, agg.LosingTrades,
		agg.WinRate, agg.Notes, agg.Mood, images, nowNanos(),
	)
	return err
}

func (j *SQLite) RecordDayStats(ctx context.Context, owner, date string, s DayStats) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO calendar_days
			(owner, date, daily_pnl, trades_count, winning_trades, losing_trades, win_rate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, date) DO UPDATE SET
			daily_pnl = excluded.daily_pnl,
			trades_count = excluded.trades_count,
			winning_trades = excluded.winning_trades,
			losing_trades = excluded.losing_trades,
			win_rate = excluded.win_rate,
			updated_at = `+bumpUpdatedAt,
		owner, date, s.DailyPnL, s.TradesCount, s.WinningTrades, s.LosingTrades, s.WinRate, nowNanos(),
	)
	return err
}

func (j *SQLite) UpdateAggregateStats(ctx context.Context, owner, date string, seen time.Time, s DayStats) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE calendar_days SET
			daily_pnl = ?,
			trades_count = ?,
			winning_trades = ?,
			losing_trades = ?,
			win_rate = ?,
			updated_at = MAX(updated_at + 1, ?)
		WHERE owner = ? AND date = ? AND updated_at = ?`,
		s.DailyPnL, s.TradesCount, s.WinningTrades, s.LosingTrades, s.WinRate, nowNanos(),
		owner, date, seen.UnixNano(),
	)
	return expectOneRow(res, err, owner, date)
}

func (j *SQLite) SaveDiary(ctx context.Context, owner, date string, d Diary) error {
	images, err := encodeImages(d.Images)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO calendar_days (owner, date, notes, mood, images, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, date) DO UPDATE SET
			notes = excluded.notes,
			mood = excluded.mood,
			images = excluded.images,
			updated_at = `+bumpUpdatedAt,
		owner, date, d.Notes, d.Mood, images, nowNanos(),
	)
	return err
}

func (j *SQLite) DeleteAggregate(ctx context.Context, owner, date string, seen time.Time) error {
	res, err := j.db.ExecContext(ctx, `
		DELETE FROM calendar_days
		WHERE owner = ? AND date = ? AND updated_at = ? AND `+noDiarySQL,
		owner, date, seen.UnixNano())
	return expectOneRow(res, err, owner, date)
}

func (j *SQLite) ListAggregatesWithStats(ctx context.Context, owner string, r DateRange) ([]DayAggregate, error) {
	return j.listAggregates(ctx, hasStatsSQL, owner, r)
}

func (j *SQLite) ListEmptyAggregates(ctx context.Context, owner string, r DateRange) ([]DayAggregate, error) {
	return j.listAggregates(ctx, "NOT "+hasStatsSQL+" AND "+noDiarySQL, owner, r)
}

func (j *SQLite) listAggregates(ctx context.Context, cond, owner string, r DateRange) ([]DayAggregate, error) {
	query := `SELECT ` + aggregateColumns + ` FROM calendar_days WHERE owner = ? AND ` + cond
	args := []any{owner}
	if r.From != "" {
		query += ` AND date >= ?`
		args = append(args, r.From)
	}
	if r.To != "" {
		query += ` AND date <= ?`
		args = append(args, r.To)
	}
	query += ` ORDER BY date ASC`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanAggregate(s scanner) (DayAggregate, error) {
	var (
		agg       DayAggregate
		images    string
		updatedNs int64
	)
	err := s.Scan(
		&agg.Owner,
		&agg.Date,
		&agg.DailyPnL,
		&agg.TradesCount,
		&agg.WinningTrades,
		&agg.LosingTrades,
		&agg.WinRate,
		&agg.Notes,
		&agg.Mood,
		&images,
		&updatedNs,
	)
	if err != nil {
		return DayAggregate{}, err
	}
	if images != "" && images != "null" {
		if err := json.Unmarshal([]byte(images), &agg.Images); err != nil {
			return DayAggregate{}, fmt.Errorf("decode images for %s: %w", agg.Date, err)
		}
	}
	if len(agg.Images) == 0 {
		agg.Images = nil
	}
	agg.UpdatedAt = time.Unix(0, updatedNs).UTC()
	return agg, nil
}

func encodeImages(images []string) (string, error) {
	if len(images) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("encode images: %w", err)
	}
	return string(b), nil
}

func expectOneRow(res sql.Result, err error, owner, date string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("calendar day %s for %q: %w", date, owner, ErrAggregateChanged)
	}
	return nil
}

func nowNanos() int64 {
	return time.Now().UTC().UnixNano()
}
