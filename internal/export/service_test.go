package export_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/playledger/internal/export"
	"github.com/MrJamesThe3rd/playledger/internal/importer/csvfile"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "purchases_20231105.csv", export.FileName(time.Date(2023, 11, 5, 23, 0, 0, 0, time.UTC)))
}

func TestService_Export(t *testing.T) {
	var buf bytes.Buffer

	ps := []purchase.Purchase{
		{
			ID:       "1",
			Name:     `Pack "Deluxe", 100 orbs`,
			Price:    4800,
			Currency: "JPY",
			Date:     time.Date(2023, 11, 5, 20, 15, 0, 0, time.UTC),
			Category: purchase.CategoryInApp,
			Store:    purchase.StoreGooglePlay,
		},
	}

	require.NoError(t, export.NewService().Export(context.Background(), &buf, ps))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,name,price,currency,date,category,store,icon", lines[0])
	assert.Equal(t, `1,"Pack ""Deluxe"", 100 orbs",4800,JPY,2023-11-05T20:15:00Z,In-App-Purchase,Google Play,`, lines[1])
}

func TestService_Export_Empty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, export.NewService().Export(context.Background(), &buf, nil))
	assert.Equal(t, "id,name,price,currency,date,category,store,icon\n", buf.String())
}

func TestService_Export_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := export.NewService().Export(ctx, &bytes.Buffer{}, purchase.DemoPurchases())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_RoundTrip(t *testing.T) {
	ledger := purchase.DemoPurchases()
	ledger = append(ledger, purchase.Purchase{
		ID:       "multi",
		Name:     "Line one\nline two, with comma",
		Price:    0,
		Currency: "USD",
		Date:     time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC),
		Category: purchase.CategoryApp,
		Store:    purchase.StoreGooglePlay,
	})

	var buf bytes.Buffer
	require.NoError(t, export.NewService().Export(context.Background(), &buf, ledger))

	batch, err := csvfile.New().Parse(&buf)
	require.NoError(t, err)
	assert.Empty(t, batch.Warnings)
	require.Len(t, batch.Purchases, len(ledger))

	for i, want := range ledger {
		got := batch.Purchases[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Price, got.Price)
		assert.Equal(t, want.Currency, got.Currency)
		assert.True(t, want.Date.Equal(got.Date), "date of %s", want.ID)
		assert.Equal(t, want.Category, got.Category)
		assert.Equal(t, want.Store, got.Store)
		assert.Equal(t, want.Icon, got.Icon)
	}
}

func TestService_WriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	now := time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC)

	path, err := export.NewService().WriteFile(context.Background(), dir, now, purchase.DemoPurchases())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "purchases_20231105.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,name,price"))
}

func TestService_Summary(t *testing.T) {
	body := export.NewService().Summary(purchase.DemoPurchases()[:1])
	assert.Equal(t, "* 2023/10/15 | Minecraft | ¥860 | Game\n", body)
}
