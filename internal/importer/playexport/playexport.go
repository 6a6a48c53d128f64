package playexport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	enc "github.com/MrJamesThe3rd/playledger/internal/encoding"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

// Entry field names used by the store's data export.
const (
	FieldOrderID  = "orderId"
	FieldTitle    = "title"
	FieldAmount   = "purchaseAmount"
	FieldType     = "purchaseType"
	FieldTime     = "purchaseTime"
	FieldCurrency = "currency"
	FieldIcon     = "icon"

	// wrapperKey is used by account takeouts, which nest every entry one level down.
	wrapperKey = "purchaseHistory"
)

const historyPath = "$.history"

// Importer reads the store's purchase history export.
type Importer struct {
	now func() time.Time
}

func New() *Importer {
	return &Importer{now: time.Now}
}

// NewWithClock is New with a fixed clock for entries without a usable time.
func NewWithClock(now func() time.Time) *Importer {
	return &Importer{now: now}
}

func (i *Importer) Parse(r io.Reader) (*purchase.Batch, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, purchase.ErrEmptyFile
	}

	doc, err := decode(data)
	if err != nil {
		return nil, err
	}

	entries, err := historyEntries(doc)
	if err != nil {
		return nil, err
	}

	batch := &purchase.Batch{}
	now := i.now().UTC()

	for n, raw := range entries {
		record := n + 1

		obj, ok := raw.(map[string]any)
		if !ok {
			batch.Warn(record, "", "entry is not an object, skipped")
			continue
		}

		if inner, ok := obj[wrapperKey].(map[string]any); ok {
			obj = inner
		}

		if p, ok := parseEntry(obj, record, now, batch); ok {
			batch.Purchases = append(batch.Purchases, p)
		}
	}

	return batch, nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", purchase.ErrMalformedFile, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON document", purchase.ErrMalformedFile)
	}

	return doc, nil
}

// historyEntries accepts either a bare array or an object carrying the
// entries under "history".
func historyEntries(doc any) ([]any, error) {
	if list, ok := doc.([]any); ok {
		return list, nil
	}

	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: expected an array or an object with a history array", purchase.ErrMalformedFile)
	}

	val, err := jsonpath.Get(historyPath, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", purchase.ErrMalformedFile, err)
	}

	list, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: history is not an array", purchase.ErrMalformedFile)
	}

	return list, nil
}

func parseEntry(obj map[string]any, record int, now time.Time, batch *purchase.Batch) (purchase.Purchase, bool) {
	p := purchase.Purchase{
		ID:       text(obj[FieldOrderID]),
		Name:     text(obj[FieldTitle]),
		Currency: text(obj[FieldCurrency]),
		Icon:     text(obj[FieldIcon]),
		Category: categoryOf(text(obj[FieldType])),
		Date:     now,
	}

	if strings.TrimSpace(p.Name) == "" {
		batch.Warn(record, FieldTitle, "missing title, entry skipped")
		return purchase.Purchase{}, false
	}

	price, err := amountOf(obj[FieldAmount])
	if err != nil {
		batch.Warn(record, FieldAmount, "invalid amount %q, using 0", text(obj[FieldAmount]))
	}

	p.Price = price

	if s := text(obj[FieldTime]); s != "" {
		date, ok := purchase.ParseDate(s, now)
		if !ok {
			batch.Warn(record, FieldTime, "invalid time %q, using current time", s)
		}

		p.Date = date
	}

	for _, issue := range purchase.Normalize(&p, now) {
		batch.Warn(record, issue.Field, "%s", issue.Message)
	}

	return p, true
}

// categoryOf maps the free-text purchase type by substring, most specific first.
func categoryOf(kind string) purchase.Category {
	kind = strings.ToLower(kind)

	switch {
	case strings.Contains(kind, "subscription"):
		return purchase.CategorySubscription
	case strings.Contains(kind, "in-app"):
		return purchase.CategoryInApp
	case strings.Contains(kind, "game"):
		return purchase.CategoryGame
	default:
		return purchase.CategoryApp
	}
}

// text renders a scalar JSON value as trimmed text. Objects, arrays and null
// read as empty.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}

		return "false"
	default:
		return ""
	}
}
