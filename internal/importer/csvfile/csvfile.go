package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/MrJamesThe3rd/playledger/internal/encoding"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

const (
	ColID       = "id"
	ColName     = "name"
	ColPrice    = "price"
	ColCurrency = "currency"
	ColDate     = "date"
	ColCategory = "category"
	ColStore    = "store"
	ColIcon     = "icon"
)

// Columns is the canonical header, in export order.
var Columns = []string{ColID, ColName, ColPrice, ColCurrency, ColDate, ColCategory, ColStore, ColIcon}

// Importer reads the ledger's own CSV export format.
type Importer struct {
	now func() time.Time
}

func New() *Importer {
	return &Importer{now: time.Now}
}

// NewWithClock is New with a fixed clock for records without a usable date.
func NewWithClock(now func() time.Time) *Importer {
	return &Importer{now: now}
}

func (i *Importer) Parse(r io.Reader) (*purchase.Batch, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		batch = &purchase.Batch{}
		cols  colIndex
		now   = i.now().UTC()
	)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("read csv: %w", err)
			}

			batch.Warn(parseErr.StartLine, "", "unreadable line: %v", parseErr.Err)

			continue
		}

		if isBlank(row) {
			continue
		}

		line, _ := reader.FieldPos(0)

		if cols == nil {
			cols = headerIndex(row)
			if len(cols) == 0 {
				return nil, fmt.Errorf("%w: header has none of the columns %s", purchase.ErrMalformedFile, strings.Join(Columns, ","))
			}

			continue
		}

		if p, ok := parseRow(cols, row, line, now, batch); ok {
			batch.Purchases = append(batch.Purchases, p)
		}
	}

	if cols == nil {
		return nil, purchase.ErrEmptyFile
	}

	return batch, nil
}

// colIndex maps canonical column names to their index in the row.
type colIndex map[string]int

func headerIndex(row []string) colIndex {
	cols := make(colIndex)

	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		for _, known := range Columns {
			if name == known {
				if _, dup := cols[name]; !dup {
					cols[name] = i
				}
			}
		}
	}

	return cols
}

// parseRow builds a purchase from one data row. Only a missing name drops the
// record; every other problem is defaulted and reported.
func parseRow(cols colIndex, row []string, line int, now time.Time, batch *purchase.Batch) (purchase.Purchase, bool) {
	p := purchase.Purchase{
		ID:       cols.value(row, ColID),
		Name:     cols.value(row, ColName),
		Currency: cols.value(row, ColCurrency),
		Category: purchase.Category(cols.value(row, ColCategory)),
		Store:    cols.value(row, ColStore),
		Icon:     cols.value(row, ColIcon),
		Date:     now,
	}

	if p.Name == "" {
		batch.Warn(line, ColName, "missing name, record skipped")
		return purchase.Purchase{}, false
	}

	if s := cols.value(row, ColPrice); s != "" {
		price, err := parsePrice(s)
		if err != nil {
			batch.Warn(line, ColPrice, "invalid price %q, using 0", s)
		}

		p.Price = price
	}

	if s := cols.value(row, ColDate); s != "" {
		date, ok := purchase.ParseDate(s, now)
		if !ok {
			batch.Warn(line, ColDate, "invalid date %q, using current time", s)
		}

		p.Date = date
	}

	for _, issue := range purchase.Normalize(&p, now) {
		batch.Warn(line, issue.Field, "%s", issue.Message)
	}

	return p, true
}

var maxPrice = decimal.NewFromInt(math.MaxInt64)

// parsePrice accepts whole or decimal amounts with optional thousands
// separators and rounds to whole currency units. Amounts beyond int64 are
// rejected rather than wrapped.
func parsePrice(s string) (int64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, err
	}

	d = d.Round(0)
	if d.Abs().GreaterThan(maxPrice) {
		return 0, fmt.Errorf("price %s out of range", clean)
	}

	return d.IntPart(), nil
}

// value safely gets a trimmed cell for a column that may be absent.
func (c colIndex) value(row []string, col string) string {
	idx, ok := c[col]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}
