package purchase

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile     = errors.New("empty file")
	ErrMalformedFile = errors.New("malformed file")
)

// Batch is the outcome of normalizing one imported file.
type Batch struct {
	Purchases []Purchase
	Warnings  []Warning
}

// Warn records a per-record problem.
func (b *Batch) Warn(record int, field, format string, args ...any) {
	b.Warnings = append(b.Warnings, Warning{
		Record:  record,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// Warning describes a record that was defaulted or dropped during import.
// Record is the 1-based line (CSV) or entry (JSON) number.
type Warning struct {
	Record  int    `json:"record"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("record %d: %s", w.Record, w.Message)
	}

	return fmt.Sprintf("record %d: %s: %s", w.Record, w.Field, w.Message)
}
