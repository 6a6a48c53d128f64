package local_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/playledger/internal/kv"
	"github.com/MrJamesThe3rd/playledger/internal/ledger"
	"github.com/MrJamesThe3rd/playledger/internal/ledger/local"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

func item(id, name string, price int64) purchase.Purchase {
	return purchase.Purchase{
		ID:       id,
		Name:     name,
		Price:    price,
		Currency: purchase.DefaultCurrency,
		Date:     time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC),
		Category: purchase.CategoryApp,
		Store:    purchase.StoreGooglePlay,
	}
}

func newStore() (*local.Store, *kv.Memory) {
	mem := kv.NewMemory()
	return local.New(mem, local.KeyFor("demo-user")), mem
}

func receive(t *testing.T, sub *ledger.Subscription) []purchase.Purchase {
	t.Helper()

	select {
	case ps := <-sub.Updates():
		return ps
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, "purchases:demo-user", local.KeyFor("demo-user"))
}

func TestStore_AddIsUpsert(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	require.NoError(t, store.Add(ctx, item("1", "A", 100)))
	require.NoError(t, store.Add(ctx, item("2", "B", 200)))
	require.NoError(t, store.Add(ctx, item("1", "A2", 150)))
	require.NoError(t, store.Add(ctx, item("1", "A2", 150)))

	ps, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "A2", ps[0].Name, "replaced in place")
	assert.Equal(t, "2", ps[1].ID)
}

func TestStore_AddRejectsInvalid(t *testing.T) {
	store, _ := newStore()

	err := store.Add(context.Background(), purchase.Purchase{ID: "1"})
	assert.ErrorIs(t, err, purchase.ErrInvalid)
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	require.NoError(t, store.Add(ctx, item("1", "A", 100)))
	require.NoError(t, store.Add(ctx, item("2", "B", 200)))
	require.NoError(t, store.Remove(ctx, "1"))
	require.NoError(t, store.Remove(ctx, "missing"))

	ps, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "2", ps[0].ID)
}

func TestStore_BulkReplace(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	require.NoError(t, store.Add(ctx, item("old", "Old", 1)))

	result, err := store.BulkReplace(ctx, []purchase.Purchase{
		item("1", "A", 100),
		item("2", "B", 200),
		item("1", "A again", 300),
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.BulkResult{Attempted: 3, Completed: 3}, result)

	ps, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "A again", ps[0].Name)
	assert.Equal(t, "2", ps[1].ID)
}

func TestStore_BulkReplaceInvalidLeavesLedger(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	require.NoError(t, store.Add(ctx, item("keep", "Keep", 1)))

	_, err := store.BulkReplace(ctx, []purchase.Purchase{item("1", "A", 1), {ID: "bad"}})
	assert.ErrorIs(t, err, purchase.ErrInvalid)

	ps, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "keep", ps[0].ID)
}

func TestStore_ClearDeletesKey(t *testing.T) {
	ctx := context.Background()
	store, mem := newStore()

	require.NoError(t, store.Add(ctx, item("1", "A", 100)))

	result, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.BulkResult{Attempted: 1, Completed: 1}, result)

	_, ok, err := mem.Get(ctx, local.KeyFor("demo-user"))
	require.NoError(t, err)
	assert.False(t, ok, "clear removes the key instead of writing an empty array")

	ps, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestStore_EmptyArrayReadsEmpty(t *testing.T) {
	ctx := context.Background()
	store, mem := newStore()

	require.NoError(t, mem.Set(ctx, local.KeyFor("demo-user"), []byte(`[]`)))

	ps, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ps)
	assert.Empty(t, ps)
}

func TestStore_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store, mem := newStore()

	require.NoError(t, mem.Set(ctx, local.KeyFor("demo-user"), []byte(`{not json`)))

	_, err := store.Snapshot(ctx)
	assert.Error(t, err)
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	require.NoError(t, store.Add(ctx, item("1", "A", 100)))

	sub, err := store.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	assert.Len(t, receive(t, sub), 1, "initial snapshot")

	require.NoError(t, store.Add(ctx, item("2", "B", 200)))
	assert.Len(t, receive(t, sub), 2)

	_, err = store.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, receive(t, sub))
}

func TestStore_NoDeliveryAfterClose(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	sub, err := store.Subscribe(ctx)
	require.NoError(t, err)

	receive(t, sub)
	sub.Close()

	require.NoError(t, store.Add(ctx, item("1", "A", 100)))

	_, ok := <-sub.Updates()
	assert.False(t, ok)
}

func TestStore_Isolation(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	a := local.New(mem, local.KeyFor("a"))
	b := local.New(mem, local.KeyFor("b"))

	require.NoError(t, a.Add(ctx, item("1", "A", 100)))

	ps, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, ps)
}

type failingKV struct {
	kv.Store
}

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestStore_PersistFailureSkipsBroadcast(t *testing.T) {
	ctx := context.Background()
	store := local.New(failingKV{Store: kv.NewMemory()}, "k")

	sub, err := store.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	receive(t, sub)

	assert.Error(t, store.Add(ctx, item("1", "A", 100)))

	select {
	case ps := <-sub.Updates():
		t.Fatalf("unexpected snapshot %v", ps)
	case <-time.After(50 * time.Millisecond):
	}
}
