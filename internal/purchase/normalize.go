package purchase

import (
	"fmt"
	"strings"
	"time"
)

// Issue records a field that had to be coerced during normalization.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// Normalize fills missing fields with their defaults and clamps values that
// are out of range. It never fails; every coercion of a value that was
// actually present is reported as an Issue. Name is left untouched, callers
// decide what to do with an unnamed record.
func Normalize(p *Purchase, now time.Time) []Issue {
	var issues []Issue

	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = NewID()
	}

	p.Name = strings.TrimSpace(p.Name)
	p.Icon = strings.TrimSpace(p.Icon)

	if p.Price < 0 {
		issues = append(issues, Issue{Field: "price", Message: fmt.Sprintf("negative price %d replaced with 0", p.Price)})
		p.Price = 0
	}

	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}

	if !p.Category.Valid() {
		c, ok := ParseCategory(string(p.Category))
		if !ok && p.Category != "" {
			issues = append(issues, Issue{Field: "category", Message: fmt.Sprintf("unknown category %q, using %s", p.Category, c)})
		}

		p.Category = c
	}

	if p.Date.IsZero() {
		p.Date = now
	}

	p.Date = p.Date.UTC()

	p.Store = strings.TrimSpace(p.Store)
	if p.Store == "" {
		p.Store = StoreGooglePlay
	}

	return issues
}
