package purchase_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

var now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestParseCategory(t *testing.T) {
	type testCase struct {
		name   string
		input  string
		want   purchase.Category
		wantOK bool
	}

	tests := []testCase{
		{name: "Canonical", input: "Game", want: purchase.CategoryGame, wantOK: true},
		{name: "Lowercase", input: "subscription", want: purchase.CategorySubscription, wantOK: true},
		{name: "Legacy IAP", input: "IAP", want: purchase.CategoryInApp, wantOK: true},
		{name: "Canonical IAP", input: "In-App-Purchase", want: purchase.CategoryInApp, wantOK: true},
		{name: "Unknown", input: "Movie", want: purchase.CategoryApp, wantOK: false},
		{name: "Empty", input: "", want: purchase.CategoryApp, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := purchase.ParseCategory(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	p := purchase.Purchase{Name: "  Minecraft "}

	issues := purchase.Normalize(&p, now)
	assert.Empty(t, issues)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Minecraft", p.Name)
	assert.Equal(t, purchase.DefaultCurrency, p.Currency)
	assert.Equal(t, purchase.CategoryApp, p.Category)
	assert.Equal(t, purchase.StoreGooglePlay, p.Store)
	assert.True(t, p.Date.Equal(now))
	require.NoError(t, p.Validate())
}

func TestNormalize_Coercions(t *testing.T) {
	p := purchase.Purchase{
		ID:       "x",
		Name:     "Thing",
		Price:    -5,
		Currency: "usd",
		Category: "Movie",
	}

	issues := purchase.Normalize(&p, now)
	require.Len(t, issues, 2)
	assert.Equal(t, "price", issues[0].Field)
	assert.Equal(t, "category", issues[1].Field)

	assert.Equal(t, int64(0), p.Price)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, purchase.CategoryApp, p.Category)
}

func TestValidate(t *testing.T) {
	valid := purchase.Purchase{ID: "1", Name: "A", Category: purchase.CategoryApp}
	require.NoError(t, valid.Validate())

	noName := valid
	noName.Name = " "
	assert.ErrorIs(t, noName.Validate(), purchase.ErrInvalid)

	negative := valid
	negative.Price = -1
	assert.ErrorIs(t, negative.Validate(), purchase.ErrInvalid)

	badCategory := valid
	badCategory.Category = "IAP"
	assert.ErrorIs(t, badCategory.Validate(), purchase.ErrInvalid)
}

func TestUpsert(t *testing.T) {
	ledger := []purchase.Purchase{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}

	replaced := purchase.Upsert(ledger, purchase.Purchase{ID: "a", Name: "A2"})
	require.Len(t, replaced, 2)
	assert.Equal(t, "A2", replaced[0].Name)
	assert.Equal(t, "A", ledger[0].Name, "input must not be modified")

	appended := purchase.Upsert(ledger, purchase.Purchase{ID: "c", Name: "C"})
	require.Len(t, appended, 3)
	assert.Equal(t, "c", appended[2].ID)
}

func TestDedupe(t *testing.T) {
	got := purchase.Dedupe([]purchase.Purchase{
		{ID: "a", Name: "first"},
		{ID: "b", Name: "B"},
		{ID: "a", Name: "second"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Name)
	assert.Equal(t, "b", got[1].ID)
}

func TestParseDate(t *testing.T) {
	type testCase struct {
		name   string
		input  string
		want   time.Time
		wantOK bool
	}

	tests := []testCase{
		{
			name:   "RFC3339",
			input:  "2023-10-15T10:30:00Z",
			want:   time.Date(2023, 10, 15, 10, 30, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "RFC3339 with offset",
			input:  "2023-10-15T19:30:00+09:00",
			want:   time.Date(2023, 10, 15, 10, 30, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "Epoch millis",
			input:  "1699215300000",
			want:   time.Date(2023, 11, 5, 20, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "Epoch seconds",
			input:  "1699215300",
			want:   time.Date(2023, 11, 5, 20, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "Date only",
			input:  "2022-05-20",
			want:   time.Date(2022, 5, 20, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "English month",
			input:  "Nov 5, 2023",
			want:   time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "Japanese numerals",
			input:  "2023年11月05日 20:15",
			want:   time.Date(2023, 11, 5, 20, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "Free text",
			input:  "purchased on 2023.11.05",
			want:   time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "Impossible date",
			input:  "2023-02-30 garbage",
			want:   now,
			wantOK: false,
		},
		{
			name:   "Garbage",
			input:  "yesterday",
			want:   now,
			wantOK: false,
		},
		{
			name:   "Empty",
			input:  "",
			want:   now,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := purchase.ParseDate(tt.input, now)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNewDemoProfile(t *testing.T) {
	a := purchase.NewDemoProfile()
	b := purchase.NewDemoProfile()

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Ephemeral)
	assert.True(t, strings.HasPrefix(a.ID, "demo-"))
	assert.Equal(t, purchase.DemoProfile().DisplayName, a.DisplayName)
}
