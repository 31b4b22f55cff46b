package portfolio

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func buy(id, asset, amount, price string) Purchase {
	return Purchase{
		ID:      id,
		AssetID: asset,
		Name:    asset,
		Symbol:  asset,
		Amount:  d(amount),
		Price:   d(price),
		Date:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (s *memStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memStore) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}
