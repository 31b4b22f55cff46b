package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoadLedgerRecoversFromBadData(t *testing.T) {
	store := &mockStore{}
	store.On("Load", mock.Anything, HoldingsKey).Return([]byte(`{not json`), nil)
	store.On("Load", mock.Anything, FavoritesKey).Return(nil, errors.New("redis: connection refused"))

	l := LoadLedger(context.Background(), store)

	assert.Empty(t, l.Purchases())
	assert.Empty(t, l.Favorites())
	store.AssertExpectations(t)
}

func TestLoadLedgerDropsInvalidEntries(t *testing.T) {
	store := newMemStore()
	store.data[HoldingsKey] = []byte(`[
		{"id":"ok","cryptoId":"bitcoin","amount":"0.5","price":"100","date":"2024-01-01T00:00:00Z"},
		{"id":"legacy","cryptoId":"ethereum","amount":2,"price":1500.25,"date":"2024-02-01T00:00:00.000Z"},
		{"id":"bad","cryptoId":"bitcoin","amount":"0","price":"100"}
	]`)
	store.data[FavoritesKey] = []byte(`["bitcoin","","bitcoin","solana"]`)

	l := LoadLedger(context.Background(), store)

	purchases := l.Purchases()
	require.Len(t, purchases, 2)
	assert.Equal(t, "ok", purchases[0].ID)
	assert.Equal(t, "1500.25", purchases[1].Price.String())
	assert.Equal(t, []string{"bitcoin", "solana"}, l.Favorites())
}

func TestLedgerPurchaseLifecycle(t *testing.T) {
	store := newMemStore()
	l := LoadLedger(context.Background(), store)
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	added, err := l.Add(Purchase{AssetID: "bitcoin", Name: "Bitcoin", Amount: d("1"), Price: d("100")})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, fixed, added.Date)
	assert.Equal(t, fixed, added.CreatedAt)

	_, err = l.Add(Purchase{AssetID: "bitcoin", Amount: d("-1"), Price: d("100")})
	assert.ErrorIs(t, err, ErrInvalidPurchase)

	price := d("120")
	notes := "dca"
	edited, err := l.Edit(added.ID, PurchaseEdit{Price: &price, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, added.ID, edited.ID)
	assert.Equal(t, "120", edited.Price.String())
	assert.Equal(t, "dca", edited.Notes)

	zero := d("0")
	_, err = l.Edit(added.ID, PurchaseEdit{Amount: &zero})
	assert.ErrorIs(t, err, ErrInvalidPurchase)
	got, ok := l.Purchase(added.ID)
	require.True(t, ok)
	assert.Equal(t, "1", got.Amount.String(), "rejected edit leaves the entry alone")

	_, err = l.Edit("missing", PurchaseEdit{})
	assert.ErrorIs(t, err, ErrPurchaseNotFound)

	l.Flush()
	reloaded := LoadLedger(context.Background(), store)
	require.Len(t, reloaded.Purchases(), 1)
	assert.Equal(t, "120", reloaded.Purchases()[0].Price.String())

	require.NoError(t, l.Remove(added.ID))
	assert.ErrorIs(t, l.Remove(added.ID), ErrPurchaseNotFound)
	l.Flush()
	assert.JSONEq(t, `[]`, string(store.data[HoldingsKey]))
}

func TestLedgerFavoritesRoundTrip(t *testing.T) {
	store := newMemStore()
	l := LoadLedger(context.Background(), store)

	assert.True(t, l.ToggleFavorite("solana"))
	assert.True(t, l.ToggleFavorite("bitcoin"))
	assert.True(t, l.ToggleFavorite("ethereum"))
	require.NoError(t, l.ReorderFavorites([]string{"bitcoin", "ethereum", "solana"}))
	assert.Equal(t, []string{"ethereum", "solana", "bitcoin"}, l.MoveFavorite(0, 2))
	l.Flush()

	reloaded := LoadLedger(context.Background(), store)
	assert.Equal(t, []string{"ethereum", "solana", "bitcoin"}, reloaded.Favorites())
	assert.True(t, reloaded.IsFavorite("solana"))

	assert.ErrorIs(t, l.ReorderFavorites([]string{"bitcoin", "ethereum"}), ErrNotPermutation)
	assert.False(t, l.ToggleFavorite("solana"))
	assert.Equal(t, []string{"ethereum", "bitcoin"}, l.Favorites())
}

func TestLedgerSaveFailureKeepsMemoryState(t *testing.T) {
	store := &mockStore{}
	store.On("Load", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("Save", mock.Anything, FavoritesKey, []byte(`["bitcoin"]`)).Return(errors.New("disk full")).Once()

	l := LoadLedger(context.Background(), store)
	l.ToggleFavorite("bitcoin")
	l.Flush()

	assert.Equal(t, []string{"bitcoin"}, l.Favorites())
	store.AssertExpectations(t)
}

func TestLedgerFailedNewerSaveBlocksOlderSave(t *testing.T) {
	store := &mockStore{}
	store.On("Load", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("Save", mock.Anything, FavoritesKey, []byte(`["bitcoin","ethereum"]`)).Return(errors.New("disk full")).Once()

	l := LoadLedger(context.Background(), store)
	l.write(FavoritesKey, 2, []byte(`["bitcoin","ethereum"]`))
	l.write(FavoritesKey, 1, []byte(`["bitcoin"]`))

	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "Save", 1)
}

func TestLedgerWithoutStore(t *testing.T) {
	l := LoadLedger(context.Background(), nil)
	_, err := l.Add(Purchase{AssetID: "bitcoin", Amount: d("1"), Price: d("1")})
	require.NoError(t, err)
	l.Flush()
	assert.Len(t, l.Purchases(), 1)
}
