package csvfile_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/playledger/internal/importer/csvfile"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func parse(t *testing.T, content string) *purchase.Batch {
	t.Helper()

	batch, err := csvfile.NewWithClock(func() time.Time { return now }).Parse(strings.NewReader(content))
	require.NoError(t, err)

	return batch
}

func TestImporter_Parse(t *testing.T) {
	type testCase struct {
		name         string
		csvContent   string
		wantLen      int
		wantWarnings int
		verify       func(t *testing.T, batch *purchase.Batch)
	}

	tests := []testCase{
		{
			name: "Canonical Export",
			csvContent: `id,name,price,currency,date,category,store,icon
1,Minecraft,860,JPY,2023-10-15T10:30:00Z,Game,Google Play,https://example.com/mc.png
2,"Google One, 100GB",250,JPY,2023-11-01T09:00:00Z,Subscription,Google Play,
`,
			wantLen: 2,
			verify: func(t *testing.T, batch *purchase.Batch) {
				mc := batch.Purchases[0]
				assert.Equal(t, "1", mc.ID)
				assert.Equal(t, "Minecraft", mc.Name)
				assert.Equal(t, int64(860), mc.Price)
				assert.Equal(t, purchase.CategoryGame, mc.Category)
				assert.Equal(t, "https://example.com/mc.png", mc.Icon)
				assert.True(t, mc.Date.Equal(time.Date(2023, 10, 15, 10, 30, 0, 0, time.UTC)))

				g1 := batch.Purchases[1]
				assert.Equal(t, "Google One, 100GB", g1.Name)
				assert.Equal(t, purchase.CategorySubscription, g1.Category)
				assert.Empty(t, g1.Icon)
			},
		},
		{
			name: "Escaped Quotes And Embedded Newline",
			csvContent: "id,name,price\n" +
				"1,\"The \"\"Best\"\" App\",100\n" +
				"2,\"Two\nLines\",200\n",
			wantLen: 2,
			verify: func(t *testing.T, batch *purchase.Batch) {
				assert.Equal(t, `The "Best" App`, batch.Purchases[0].Name)
				assert.Equal(t, "Two\nLines", batch.Purchases[1].Name)
			},
		},
		{
			name:       "Blank Lines Skipped",
			csvContent: "\n   \nid,name,price\n\n1,A,100\n  ,  \n2,B,200\n\n\n",
			wantLen:    2,
		},
		{
			name:         "Non Numeric Price",
			csvContent:   "id,name,price\n1,Good,100\n2,Bad,abc\n",
			wantLen:      2,
			wantWarnings: 1,
			verify: func(t *testing.T, batch *purchase.Batch) {
				assert.Equal(t, int64(100), batch.Purchases[0].Price)
				assert.Equal(t, int64(0), batch.Purchases[1].Price)
				assert.Equal(t, "price", batch.Warnings[0].Field)
				assert.Equal(t, 3, batch.Warnings[0].Record)
			},
		},
		{
			name:         "Price Beyond Int64",
			csvContent:   "id,name,price\n1,Huge,99999999999999999999\n2,Huge Negative,\"-99,999,999,999,999,999,999\"\n3,Max,9223372036854775807\n",
			wantLen:      3,
			wantWarnings: 2,
			verify: func(t *testing.T, batch *purchase.Batch) {
				assert.Equal(t, int64(0), batch.Purchases[0].Price)
				assert.Equal(t, int64(0), batch.Purchases[1].Price)
				assert.Equal(t, int64(math.MaxInt64), batch.Purchases[2].Price)
				assert.Equal(t, "price", batch.Warnings[0].Field)
				assert.Contains(t, batch.Warnings[0].Message, "99999999999999999999")
				assert.Equal(t, 3, batch.Warnings[1].Record)
			},
		},
		{
			name:       "Missing Columns Defaulted",
			csvContent: "name,price\nNova Launcher Prime,499\n",
			wantLen:    1,
			verify: func(t *testing.T, batch *purchase.Batch) {
				p := batch.Purchases[0]
				assert.NotEmpty(t, p.ID)
				assert.Equal(t, purchase.DefaultCurrency, p.Currency)
				assert.Equal(t, purchase.CategoryApp, p.Category)
				assert.Equal(t, purchase.StoreGooglePlay, p.Store)
				assert.True(t, p.Date.Equal(now))
			},
		},
		{
			name:       "Different Column Order",
			csvContent: "Category,Price,Name,Id\nIAP,4800,Orb Pack,X9\n",
			wantLen:    1,
			verify: func(t *testing.T, batch *purchase.Batch) {
				p := batch.Purchases[0]
				assert.Equal(t, "X9", p.ID)
				assert.Equal(t, "Orb Pack", p.Name)
				assert.Equal(t, int64(4800), p.Price)
				assert.Equal(t, purchase.CategoryInApp, p.Category)
			},
		},
		{
			name:         "Unknown Category And Bad Date",
			csvContent:   "id,name,date,category\n1,A,someday,Movie\n",
			wantLen:      1,
			wantWarnings: 2,
			verify: func(t *testing.T, batch *purchase.Batch) {
				assert.Equal(t, purchase.CategoryApp, batch.Purchases[0].Category)
				assert.True(t, batch.Purchases[0].Date.Equal(now))
			},
		},
		{
			name:         "Missing Name Dropped",
			csvContent:   "id,name,price\n1,,100\n2,B,200\n",
			wantLen:      1,
			wantWarnings: 1,
			verify: func(t *testing.T, batch *purchase.Batch) {
				assert.Equal(t, "2", batch.Purchases[0].ID)
			},
		},
		{
			name:         "Negative Price Clamped",
			csvContent:   "id,name,price\n1,A,-20\n",
			wantLen:      1,
			wantWarnings: 1,
		},
		{
			name:       "Short Row",
			csvContent: "id,name,price,currency\n1,A\n",
			wantLen:    1,
			verify: func(t *testing.T, batch *purchase.Batch) {
				assert.Equal(t, int64(0), batch.Purchases[0].Price)
			},
		},
		{
			name:       "Header Only",
			csvContent: "id,name,price,currency,date,category,store,icon\n",
			wantLen:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := parse(t, tt.csvContent)

			assert.Len(t, batch.Purchases, tt.wantLen)
			assert.Len(t, batch.Warnings, tt.wantWarnings)

			if tt.verify != nil {
				tt.verify(t, batch)
			}
		})
	}
}

func TestImporter_EmptyFile(t *testing.T) {
	_, err := csvfile.New().Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, purchase.ErrEmptyFile)

	_, err = csvfile.New().Parse(strings.NewReader("\n\n  \n"))
	assert.ErrorIs(t, err, purchase.ErrEmptyFile)
}

func TestImporter_UnknownHeader(t *testing.T) {
	_, err := csvfile.New().Parse(strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, purchase.ErrMalformedFile)
}
