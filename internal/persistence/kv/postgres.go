package kv

import (
	"context"
	"errors"
	"fmt"

	"cointrack/internal/model"
)

// PostgresStore keeps values in the kv_store table.
type PostgresStore struct {
	model model.KvStoreModel
}

func NewPostgresStore(m model.KvStoreModel) *PostgresStore {
	return &PostgresStore{model: m}
}

func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	row, err := s.model.FindOne(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv: postgres load %s: %w", key, err)
	}
	return row.Value, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, value []byte) error {
	if err := s.model.Upsert(ctx, &model.KvStore{Name: key, Value: value}); err != nil {
		return fmt.Errorf("kv: postgres save %s: %w", key, err)
	}
	return nil
}
