// Package view derives what the dashboard shows from a ledger: the filtered
// and sorted purchases and their total.
package view

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

type SortKey string

const (
	SortDate  SortKey = "date"
	SortPrice SortKey = "price"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Filter is a category or FilterAll.
type Filter string

const FilterAll Filter = "All"

// Filters lists FilterAll followed by every category, in display order.
func Filters() []Filter {
	out := []Filter{FilterAll}
	for _, c := range purchase.Categories {
		out = append(out, Filter(c))
	}

	return out
}

// ParseFilter accepts "All" or any category spelling ParseCategory knows.
func ParseFilter(s string) (Filter, bool) {
	if s == "" || strings.EqualFold(s, string(FilterAll)) {
		return FilterAll, true
	}

	c, ok := purchase.ParseCategory(s)
	if !ok {
		return FilterAll, false
	}

	return Filter(c), true
}

func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(strings.ToLower(s)) {
	case SortDate:
		return SortDate, true
	case SortPrice:
		return SortPrice, true
	}

	return SortDate, false
}

func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(s)) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}

	return Desc, false
}

// Params are the user's current view choices.
type Params struct {
	Search    string
	Category  Filter
	Sort      SortKey
	Direction Direction
}

// DefaultParams shows everything, newest first.
func DefaultParams() Params {
	return Params{Category: FilterAll, Sort: SortDate, Direction: Desc}
}

// Toggle selects key as the sort key. Selecting the active key flips the
// direction; a different key starts descending.
func (p Params) Toggle(key SortKey) Params {
	if p.Sort == key {
		if p.Direction == Desc {
			p.Direction = Asc
		} else {
			p.Direction = Desc
		}

		return p
	}

	p.Sort = key
	p.Direction = Desc

	return p
}

// Projection is the derived view of a ledger.
type Projection struct {
	Items []purchase.Purchase `json:"items"`
	Count int                 `json:"count"`
	Total int64               `json:"total"`
	// Currency is shared by every item. MixedCurrency is set when they
	// differ, in which case Total is a plain sum.
	Currency      string `json:"currency"`
	MixedCurrency bool   `json:"mixed_currency,omitempty"`
}

// Project filters, sorts and totals ledger. The input is not modified and
// ties keep their ledger order.
func Project(ledger []purchase.Purchase, p Params) Projection {
	search := strings.ToLower(strings.TrimSpace(p.Search))

	items := make([]purchase.Purchase, 0, len(ledger))

	for _, item := range ledger {
		if p.Category != "" && p.Category != FilterAll && Filter(item.Category) != p.Category {
			continue
		}

		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
			continue
		}

		items = append(items, item)
	}

	slices.SortStableFunc(items, compareBy(p.Sort, p.Direction))

	proj := Projection{Items: items, Count: len(items), Currency: purchase.DefaultCurrency}

	for i, item := range items {
		proj.Total += item.Price

		switch {
		case i == 0:
			proj.Currency = item.Currency
		case item.Currency != proj.Currency:
			proj.MixedCurrency = true
		}
	}

	return proj
}

func compareBy(key SortKey, dir Direction) func(a, b purchase.Purchase) int {
	var byKey func(a, b purchase.Purchase) int

	switch key {
	case SortPrice:
		byKey = func(a, b purchase.Purchase) int { return cmp.Compare(a.Price, b.Price) }
	default:
		byKey = func(a, b purchase.Purchase) int { return a.Date.Compare(b.Date) }
	}

	if dir == Asc {
		return byKey
	}

	return func(a, b purchase.Purchase) int { return byKey(b, a) }
}

// Engine holds a ledger and the view params, and recomputes the projection
// whenever either changes. It is safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	ledger []purchase.Purchase
	params Params
	proj   Projection
}

func NewEngine() *Engine {
	e := &Engine{params: DefaultParams()}
	e.proj = Project(nil, e.params)

	return e
}

func (e *Engine) SetLedger(ps []purchase.Purchase) Projection {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ledger = slices.Clone(ps)

	return e.recompute()
}

func (e *Engine) SetSearch(s string) Projection {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.params.Search = s

	return e.recompute()
}

func (e *Engine) SetCategory(f Filter) Projection {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.params.Category = f

	return e.recompute()
}

// CycleCategory advances the category filter to the next entry of Filters.
func (e *Engine) CycleCategory() Projection {
	e.mu.Lock()
	defer e.mu.Unlock()

	filters := Filters()
	next := (slices.Index(filters, e.params.Category) + 1) % len(filters)
	e.params.Category = filters[next]

	return e.recompute()
}

func (e *Engine) ToggleSort(key SortKey) Projection {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.params = e.params.Toggle(key)

	return e.recompute()
}

func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.params
}

func (e *Engine) Projection() Projection {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.proj
}

func (e *Engine) recompute() Projection {
	e.proj = Project(e.ledger, e.params)
	return e.proj
}
