package ingest

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/journal"
)

type Status string

const (
	Accepted  Status = "accepted"
	Warned    Status = "warned"
	Duplicate Status = "duplicate"
	Invalid   Status = "invalid"
)

// Outcome is the gate's answer for one imported row.
type Outcome struct {
	Line     int
	Status   Status
	Trade    journal.Trade
	Message  string
	Conflict *DuplicateConflict
}

// BatchReport collects the per-row outcomes of an import.
type BatchReport struct {
	Outcomes   []Outcome
	Accepted   int
	Warned     int
	Duplicates int
	Invalid    int
}

// Written returns the trades the batch persisted, in input order.
func (r BatchReport) Written() []journal.Trade {
	var out []journal.Trade
	for _, o := range r.Outcomes {
		if o.Status == Accepted || o.Status == Warned {
			out = append(out, o.Trade)
		}
	}
	return out
}

func (r *BatchReport) add(o Outcome) {
	switch o.Status {
	case Accepted:
		r.Accepted++
	case Warned:
		r.Warned++
	case Duplicate:
		r.Duplicates++
	case Invalid:
		r.Invalid++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// AcceptBatch runs every row of src through Accept. Bad rows and duplicates
// are recorded and skipped; a storage error or cancellation stops the batch
// and is returned with the report so far. Rows already written stay written.
func (g *Gate) AcceptBatch(ctx context.Context, src *journal.CSVReader, force bool) (BatchReport, error) {
	var rep BatchReport
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		t, err := src.Next()
		if err == io.EOF {
			break
		}
		var rowErr *journal.CSVRowError
		if errors.As(err, &rowErr) {
			rep.add(Outcome{Line: rowErr.Line, Status: Invalid, Message: rowErr.Err.Error()})
			continue
		}
		if err != nil {
			return rep, err
		}

		line := src.Line()
		res, err := g.Accept(ctx, t, force)
		var conflict *DuplicateConflict
		switch {
		case err == nil && res.Warning != "":
			rep.add(Outcome{Line: line, Status: Warned, Trade: res.Trade, Message: res.Warning})
		case err == nil:
			rep.add(Outcome{Line: line, Status: Accepted, Trade: res.Trade})
		case errors.As(err, &conflict):
			rep.add(Outcome{Line: line, Status: Duplicate, Trade: t, Message: conflict.Error(), Conflict: conflict})
		case errors.Is(err, ErrInvalidTrade):
			rep.add(Outcome{Line: line, Status: Invalid, Trade: t, Message: err.Error()})
		default:
			return rep, err
		}
	}

	g.log.Info("batch imported",
		zap.Int("accepted", rep.Accepted),
		zap.Int("warned", rep.Warned),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("invalid", rep.Invalid),
	)
	return rep, nil
}
