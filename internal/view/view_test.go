package view_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/view"
)

func day(d int) time.Time {
	return time.Date(2023, 11, d, 0, 0, 0, 0, time.UTC)
}

func ids(ps []purchase.Purchase) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}

	return out
}

func TestParams_Toggle(t *testing.T) {
	type testCase struct {
		name    string
		start   view.Params
		key     view.SortKey
		wantKey view.SortKey
		wantDir view.Direction
	}

	tests := []testCase{
		{
			name:    "Same Key Flips Desc To Asc",
			start:   view.Params{Sort: view.SortPrice, Direction: view.Desc},
			key:     view.SortPrice,
			wantKey: view.SortPrice,
			wantDir: view.Asc,
		},
		{
			name:    "Same Key Flips Asc To Desc",
			start:   view.Params{Sort: view.SortDate, Direction: view.Asc},
			key:     view.SortDate,
			wantKey: view.SortDate,
			wantDir: view.Desc,
		},
		{
			name:    "New Key Resets To Desc",
			start:   view.Params{Sort: view.SortDate, Direction: view.Asc},
			key:     view.SortPrice,
			wantKey: view.SortPrice,
			wantDir: view.Desc,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.Toggle(tt.key)
			assert.Equal(t, tt.wantKey, got.Sort)
			assert.Equal(t, tt.wantDir, got.Direction)
		})
	}
}

func TestProject_SortToggleSequence(t *testing.T) {
	ledger := []purchase.Purchase{
		{ID: "a", Name: "A", Price: 100, Date: day(3), Category: purchase.CategoryApp},
		{ID: "b", Name: "B", Price: 300, Date: day(1), Category: purchase.CategoryApp},
		{ID: "c", Name: "C", Price: 200, Date: day(2), Category: purchase.CategoryApp},
	}

	params := view.DefaultParams()
	assert.Equal(t, []string{"a", "c", "b"}, ids(view.Project(ledger, params).Items), "default is newest first")

	params = params.Toggle(view.SortPrice)
	assert.Equal(t, []string{"b", "c", "a"}, ids(view.Project(ledger, params).Items))

	params = params.Toggle(view.SortPrice)
	assert.Equal(t, []string{"a", "c", "b"}, ids(view.Project(ledger, params).Items))

	params = params.Toggle(view.SortDate)
	assert.Equal(t, view.Desc, params.Direction)
	assert.Equal(t, []string{"a", "c", "b"}, ids(view.Project(ledger, params).Items))

	params = params.Toggle(view.SortDate)
	assert.Equal(t, []string{"b", "c", "a"}, ids(view.Project(ledger, params).Items))
}

func TestProject_Stable(t *testing.T) {
	ledger := []purchase.Purchase{
		{ID: "1", Name: "One", Price: 500, Date: day(1)},
		{ID: "2", Name: "Two", Price: 100, Date: day(1)},
		{ID: "3", Name: "Three", Price: 500, Date: day(2)},
		{ID: "4", Name: "Four", Price: 500, Date: day(1)},
	}

	desc := view.Project(ledger, view.Params{Category: view.FilterAll, Sort: view.SortPrice, Direction: view.Desc})
	assert.Equal(t, []string{"1", "3", "4", "2"}, ids(desc.Items))

	asc := view.Project(ledger, view.Params{Category: view.FilterAll, Sort: view.SortPrice, Direction: view.Asc})
	assert.Equal(t, []string{"2", "1", "3", "4"}, ids(asc.Items))

	byDate := view.Project(ledger, view.Params{Category: view.FilterAll, Sort: view.SortDate, Direction: view.Desc})
	assert.Equal(t, []string{"3", "1", "2", "4"}, ids(byDate.Items))
}

func TestProject_Filters(t *testing.T) {
	ledger := purchase.DemoPurchases()

	type testCase struct {
		name      string
		params    view.Params
		wantIDs   []string
		wantTotal int64
	}

	tests := []testCase{
		{
			name:      "All",
			params:    view.DefaultParams(),
			wantIDs:   []string{"3", "2", "1", "4"},
			wantTotal: 860 + 250 + 4800 + 499,
		},
		{
			name:      "Category Only",
			params:    view.Params{Category: view.Filter(purchase.CategoryGame), Sort: view.SortDate, Direction: view.Desc},
			wantIDs:   []string{"1"},
			wantTotal: 860,
		},
		{
			name:      "Search Is Case Insensitive Substring",
			params:    view.Params{Search: "GOOGLE", Category: view.FilterAll, Sort: view.SortDate, Direction: view.Desc},
			wantIDs:   []string{"2"},
			wantTotal: 250,
		},
		{
			name:      "Search And Category Compose",
			params:    view.Params{Search: "Minecraft", Category: view.Filter(purchase.CategorySubscription), Sort: view.SortDate, Direction: view.Desc},
			wantIDs:   []string{},
			wantTotal: 0,
		},
		{
			name:      "Empty Category Means All",
			params:    view.Params{Sort: view.SortPrice, Direction: view.Asc},
			wantIDs:   []string{"2", "4", "1", "3"},
			wantTotal: 860 + 250 + 4800 + 499,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := view.Project(ledger, tt.params)
			assert.Equal(t, tt.wantIDs, ids(got.Items))
			assert.Equal(t, len(tt.wantIDs), got.Count)
			assert.Equal(t, tt.wantTotal, got.Total)
		})
	}
}

func TestProject_EmptyLedger(t *testing.T) {
	got := view.Project(nil, view.DefaultParams())
	assert.NotNil(t, got.Items)
	assert.Zero(t, got.Count)
	assert.Zero(t, got.Total)
	assert.Equal(t, purchase.DefaultCurrency, got.Currency)
}

func TestProject_Currency(t *testing.T) {
	same := view.Project([]purchase.Purchase{{ID: "1", Currency: "USD"}, {ID: "2", Currency: "USD"}}, view.DefaultParams())
	assert.Equal(t, "USD", same.Currency)
	assert.False(t, same.MixedCurrency)

	mixed := view.Project([]purchase.Purchase{{ID: "1", Currency: "JPY"}, {ID: "2", Currency: "USD"}}, view.DefaultParams())
	assert.True(t, mixed.MixedCurrency)
}

func TestProject_DoesNotModifyInput(t *testing.T) {
	ledger := []purchase.Purchase{
		{ID: "a", Price: 1, Date: day(1)},
		{ID: "b", Price: 2, Date: day(2)},
	}

	view.Project(ledger, view.DefaultParams())
	assert.Equal(t, []string{"a", "b"}, ids(ledger))
}

func TestParseHelpers(t *testing.T) {
	f, ok := view.ParseFilter("iap")
	assert.True(t, ok)
	assert.Equal(t, view.Filter(purchase.CategoryInApp), f)

	f, ok = view.ParseFilter("")
	assert.True(t, ok)
	assert.Equal(t, view.FilterAll, f)

	_, ok = view.ParseFilter("movies")
	assert.False(t, ok)

	k, ok := view.ParseSortKey("PRICE")
	assert.True(t, ok)
	assert.Equal(t, view.SortPrice, k)

	d, ok := view.ParseDirection("sideways")
	assert.False(t, ok)
	assert.Equal(t, view.Desc, d)
}

func TestEngine(t *testing.T) {
	e := view.NewEngine()
	assert.Zero(t, e.Projection().Count)

	proj := e.SetLedger(purchase.DemoPurchases())
	assert.Equal(t, 4, proj.Count)

	proj = e.SetSearch("orb")
	require.Equal(t, 1, proj.Count)
	assert.Equal(t, "3", proj.Items[0].ID)

	e.SetSearch("")

	proj = e.ToggleSort(view.SortPrice)
	assert.Equal(t, []string{"3", "1", "4", "2"}, ids(proj.Items))

	proj = e.ToggleSort(view.SortPrice)
	assert.Equal(t, view.Asc, e.Params().Direction)
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(proj.Items))

	proj = e.SetCategory(view.Filter(purchase.CategoryApp))
	assert.Equal(t, []string{"4"}, ids(proj.Items))
}

func TestEngine_CycleCategory(t *testing.T) {
	e := view.NewEngine()

	var seen []view.Filter
	for range len(view.Filters()) {
		e.CycleCategory()
		seen = append(seen, e.Params().Category)
	}

	assert.Equal(t, []view.Filter{
		view.Filter(purchase.CategoryApp),
		view.Filter(purchase.CategoryGame),
		view.Filter(purchase.CategoryInApp),
		view.Filter(purchase.CategorySubscription),
		view.FilterAll,
	}, seen)
}

func TestEngine_Concurrent(t *testing.T) {
	e := view.NewEngine()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			e.SetLedger(purchase.DemoPurchases())
			if i%2 == 0 {
				e.ToggleSort(view.SortPrice)
			} else {
				e.SetSearch("a")
			}
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, e.Projection().Count, 4)
}

func TestFormatPrice(t *testing.T) {
	type testCase struct {
		name     string
		amount   int64
		currency string
		want     string
	}

	tests := []testCase{
		{name: "Yen", amount: 1200, currency: "JPY", want: "¥1,200"},
		{name: "Yen Small", amount: 860, currency: "JPY", want: "¥860"},
		{name: "Yen Zero", amount: 0, currency: "JPY", want: "¥0"},
		{name: "Dollars", amount: 5, currency: "USD", want: "$5.00"},
		{name: "Unknown Currency", amount: 42, currency: "XXY", want: "42 XXY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, view.FormatPrice(tt.amount, tt.currency))
		})
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2023/11/05", view.FormatDate(day(5)))
}

func TestCategoryGlyph(t *testing.T) {
	for _, c := range purchase.Categories {
		assert.NotEmpty(t, view.CategoryGlyph(c))
	}
}

func TestProject_SearchAndCategoryBothRequired(t *testing.T) {
	ledger := []purchase.Purchase{
		{ID: "mc", Name: "Minecraft", Category: purchase.CategoryGame},
		{ID: "g1", Name: "Google One", Category: purchase.CategorySubscription},
	}

	got := view.Project(ledger, view.Params{
		Search:    "go",
		Category:  view.Filter(purchase.CategoryGame),
		Sort:      view.SortDate,
		Direction: view.Desc,
	})

	assert.Empty(t, got.Items)
	assert.Zero(t, got.Total)
}
