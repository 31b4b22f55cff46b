package model

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ KvStoreModel = (*defaultKvStoreModel)(nil)

const kvStoreRows = "name,value,updated_at"

type (
	// KvStoreModel reads and writes the kv_store table backing the ledger.
	KvStoreModel interface {
		FindOne(ctx context.Context, name string) (*KvStore, error)
		Upsert(ctx context.Context, data *KvStore) error
		Delete(ctx context.Context, name string) error
	}

	defaultKvStoreModel struct {
		conn  sqlx.SqlConn
		table string
	}

	KvStore struct {
		Name      string    `db:"name"`
		Value     []byte    `db:"value"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

// NewKvStoreModel returns a model for the database table.
func NewKvStoreModel(conn sqlx.SqlConn) KvStoreModel {
	return &defaultKvStoreModel{
		conn:  conn,
		table: `"public"."kv_store"`,
	}
}

func (m *defaultKvStoreModel) FindOne(ctx context.Context, name string) (*KvStore, error) {
	query := fmt.Sprintf("select %s from %s where name = $1 limit 1", kvStoreRows, m.table)
	var resp KvStore
	err := m.conn.QueryRowCtx(ctx, &resp, query, name)
	switch err {
	case nil:
		return &resp, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *defaultKvStoreModel) Upsert(ctx context.Context, data *KvStore) error {
	query := fmt.Sprintf(`insert into %s (name, value, updated_at) values ($1, $2, NOW())
on conflict (name) do update set value = EXCLUDED.value, updated_at = NOW()`, m.table)
	_, err := m.conn.ExecCtx(ctx, query, data.Name, data.Value)
	return err
}

func (m *defaultKvStoreModel) Delete(ctx context.Context, name string) error {
	query := fmt.Sprintf("delete from %s where name = $1", m.table)
	_, err := m.conn.ExecCtx(ctx, query, name)
	return err
}
