package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nandanugg/gird/module/core/internal/repository/database"
)

var _ database.KeyValueStore = (*KVRepo)(nil)

// KVRepo stores values in an embedded SQLite file. The caller opens db with the
// "sqlite" driver (modernc.org/sqlite).
type KVRepo struct {
	db *sql.DB
}

func NewKVRepo(db *sql.DB) *KVRepo {
	return &KVRepo{db: db}
}

func (r *KVRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS gird_kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	)
	return err
}

func (r *KVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM gird_kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *KVRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gird_kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (r *KVRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
