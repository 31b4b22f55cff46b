// Package kv implements the ledger persistence backends. Every backend
// returns nil data and a nil error for a key that was never saved.
package kv

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"cointrack/internal/config"
	"cointrack/internal/model"
	"cointrack/pkg/portfolio"
)

var (
	_ portfolio.Store = (*MemoryStore)(nil)
	_ portfolio.Store = (*FileStore)(nil)
	_ portfolio.Store = (*RedisStore)(nil)
	_ portfolio.Store = (*PostgresStore)(nil)
)

// Open builds the backend selected by c.Store.Driver.
func Open(c config.Config) (portfolio.Store, error) {
	switch c.Store.Driver {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreFile, "":
		dir := c.Path(c.Store.Dir)
		if dir == "" {
			dir = c.Store.Dir
		}
		return NewFileStore(dir)
	case config.StoreRedis:
		return NewRedisStore(c.Redis)
	case config.StorePostgres:
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		return NewPostgresStore(model.NewKvStoreModel(conn)), nil
	default:
		return nil, fmt.Errorf("kv: unknown store driver %q", c.Store.Driver)
	}
}
