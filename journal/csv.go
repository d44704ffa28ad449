// journal/csv.go
package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CSVColumns are the header names CSVReader understands. Only the first
// five are required; the rest describe the exit.
var CSVColumns = []string{"symbol", "side", "quantity", "entry_time", "entry_price", "exit_time", "exit_price", "net_pnl"}

// CSVRowError reports a bad row without stopping the rest of the import.
type CSVRowError struct {
	Line int
	Err  error
}

func (e *CSVRowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *CSVRowError) Unwrap() error { return e.Err }

// CSVReader parses broker exports into trades for one owner.
type CSVReader struct {
	r         *csv.Reader
	owner     string
	sourceTag string
	cols      map[string]int
	line      int
}

func NewCSVReader(r io.Reader, owner, sourceTag string) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.ReplaceAll(name, " ", "_")
		cols[name] = i
	}
	for _, req := range CSVColumns[:5] {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("header is missing column %q", req)
		}
	}

	return &CSVReader{r: cr, owner: owner, sourceTag: sourceTag, cols: cols}, nil
}

// Next returns the next trade, io.EOF at the end, or a *CSVRowError for a
// row that could not be parsed. Reading may continue after a row error.
func (c *CSVReader) Next() (Trade, error) {
	for {
		row, err := c.r.Read()
		if err == io.EOF {
			return Trade{}, io.EOF
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return Trade{}, &CSVRowError{Line: pe.Line, Err: pe.Err}
			}
			return Trade{}, err
		}
		if blank(row) {
			continue
		}
		c.line, _ = c.r.FieldPos(0)
		t, err := c.parse(row)
		if err != nil {
			return Trade{}, &CSVRowError{Line: c.line, Err: err}
		}
		return t, nil
	}
}

// Line is the input line of the row Next last returned.
func (c *CSVReader) Line() int {
	return c.line
}

func (c *CSVReader) field(row []string, name string) string {
	i, ok := c.cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c *CSVReader) parse(row []string) (Trade, error) {
	t := Trade{
		Owner:     c.owner,
		Symbol:    strings.ToUpper(c.field(row, "symbol")),
		SourceTag: c.sourceTag,
	}

	var err error
	if t.Side, err = ParseSide(c.field(row, "side")); err != nil {
		return Trade{}, err
	}
	if t.Quantity, err = parseNumber(c.field(row, "quantity")); err != nil {
		return Trade{}, fmt.Errorf("bad quantity: %w", err)
	}
	if t.EntryTime, err = ParseTime(c.field(row, "entry_time")); err != nil {
		return Trade{}, fmt.Errorf("bad entry_time: %w", err)
	}
	if t.EntryPrice, err = parseNumber(c.field(row, "entry_price")); err != nil {
		return Trade{}, fmt.Errorf("bad entry_price: %w", err)
	}

	if s := c.field(row, "exit_time"); s != "" {
		et, err := ParseTime(s)
		if err != nil {
			return Trade{}, fmt.Errorf("bad exit_time: %w", err)
		}
		t.ExitTime = &et
	}
	if s := c.field(row, "exit_price"); s != "" {
		p, err := parseNumber(s)
		if err != nil {
			return Trade{}, fmt.Errorf("bad exit_price: %w", err)
		}
		t.ExitPrice = &p
	}
	if s := c.field(row, "net_pnl"); s != "" {
		d, err := decimal.NewFromString(cleanNumber(s))
		if err != nil {
			return Trade{}, fmt.Errorf("bad net_pnl %q: %w", s, err)
		}
		t.NetPnL = decimal.NewNullDecimal(d)
	}

	return t, t.Validate()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
}

// ParseTime accepts RFC3339 and the zone-less layouts brokers export;
// zone-less values are read as UTC.
func ParseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// cleanNumber strips currency symbols and thousands separators, and turns
// accounting-style "(12.50)" into "-12.50".
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if neg {
		s = "-" + s
	}
	return s
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(cleanNumber(s), 64)
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
