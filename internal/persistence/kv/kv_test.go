package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cachekeys "cointrack/internal/cache"
	"cointrack/internal/config"
	"cointrack/internal/model"
	"cointrack/pkg/portfolio"
)

func exerciseStore(t *testing.T, store portfolio.Store) {
	t.Helper()
	ctx := context.Background()

	data, err := store.Load(ctx, portfolio.FavoritesKey)
	require.NoError(t, err)
	assert.Nil(t, data, "missing key loads as nil")

	require.NoError(t, store.Save(ctx, portfolio.FavoritesKey, []byte(`["bitcoin","ethereum"]`)))
	require.NoError(t, store.Save(ctx, portfolio.FavoritesKey, []byte(`["ethereum","bitcoin"]`)))

	data, err = store.Load(ctx, portfolio.FavoritesKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["ethereum","bitcoin"]`, string(data))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)

	data, _ := store.Load(context.Background(), portfolio.FavoritesKey)
	data[0] = 'x'
	again, _ := store.Load(context.Background(), portfolio.FavoritesKey)
	assert.Equal(t, byte('['), again[0], "loads return copies")
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, store)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are renamed away")
	assert.Equal(t, portfolio.FavoritesKey+".json", entries[0].Name())

	_, err = store.Load(context.Background(), "../escape")
	assert.Error(t, err)
	assert.Error(t, store.Save(context.Background(), "", nil))

	_, err = NewFileStore(" ")
	assert.Error(t, err)
}

type fakeRedis struct {
	data map[string]string
	err  error
}

func (f *fakeRedis) GetCtx(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.data[key], nil
}

func (f *fakeRedis) SetCtx(_ context.Context, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	return nil
}

func TestRedisStore(t *testing.T) {
	client := &fakeRedis{data: map[string]string{}}
	exerciseStore(t, newRedisStoreWithClient(client))
	assert.Contains(t, client.data, cachekeys.LedgerKey(portfolio.FavoritesKey))

	client.err = errors.New("connection refused")
	_, err := newRedisStoreWithClient(client).Load(context.Background(), portfolio.HoldingsKey)
	assert.ErrorIs(t, err, client.err)
}

type mockKvModel struct {
	mock.Mock
}

func (m *mockKvModel) FindOne(ctx context.Context, name string) (*model.KvStore, error) {
	args := m.Called(ctx, name)
	row, _ := args.Get(0).(*model.KvStore)
	return row, args.Error(1)
}

func (m *mockKvModel) Upsert(ctx context.Context, data *model.KvStore) error {
	return m.Called(ctx, data).Error(0)
}

func (m *mockKvModel) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func TestPostgresStore(t *testing.T) {
	m := &mockKvModel{}
	m.On("FindOne", mock.Anything, portfolio.HoldingsKey).Return(nil, model.ErrNotFound).Once()
	m.On("FindOne", mock.Anything, portfolio.FavoritesKey).Return(&model.KvStore{Value: []byte(`["bitcoin"]`)}, nil).Once()
	m.On("Upsert", mock.Anything, mock.MatchedBy(func(row *model.KvStore) bool {
		return row.Name == portfolio.FavoritesKey && string(row.Value) == `["solana"]`
	})).Return(nil).Once()

	store := NewPostgresStore(m)
	data, err := store.Load(context.Background(), portfolio.HoldingsKey)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = store.Load(context.Background(), portfolio.FavoritesKey)
	require.NoError(t, err)
	assert.Equal(t, `["bitcoin"]`, string(data))

	require.NoError(t, store.Save(context.Background(), portfolio.FavoritesKey, []byte(`["solana"]`)))
	m.AssertExpectations(t)
}

func TestOpen(t *testing.T) {
	store, err := Open(config.Config{Store: config.StoreConf{Driver: config.StoreMemory}})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(config.Config{Store: config.StoreConf{Driver: config.StoreFile, Dir: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = Open(config.Config{Store: config.StoreConf{Driver: "etcd"}})
	assert.Error(t, err)
}

func TestLedgerOverFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ledger := portfolio.LoadLedger(context.Background(), store)
	ledger.ToggleFavorite("bitcoin")
	ledger.ToggleFavorite("tether")
	ledger.Flush()

	reloaded := portfolio.LoadLedger(context.Background(), store)
	assert.Equal(t, []string{"bitcoin", "tether"}, reloaded.Favorites())
}
