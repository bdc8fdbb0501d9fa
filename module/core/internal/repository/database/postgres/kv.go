package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nandanugg/gird/module/core/internal/repository/database"
)

var _ database.KeyValueStore = (*KVRepo)(nil)

type KVRepo struct {
	db *sql.DB
}

func NewKVRepo(db *sql.DB) *KVRepo {
	return &KVRepo{db: db}
}

func (r *KVRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS gird_kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT now())`,
	)
	return err
}

func (r *KVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT value FROM gird_kv WHERE key = $1`, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *KVRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gird_kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	return err
}

func (r *KVRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
