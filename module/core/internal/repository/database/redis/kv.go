package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nandanugg/gird/module/core/internal/repository/database"
)

var _ database.KeyValueStore = (*KVRepo)(nil)

const keyPrefix = "gird:"

type KVRepo struct {
	client *goredis.Client
	prefix string
}

func NewKVRepo(client *goredis.Client, namespace string) *KVRepo {
	prefix := keyPrefix
	if namespace != "" {
		prefix += namespace + ":"
	}
	return &KVRepo{client: client, prefix: prefix}
}

func (r *KVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *KVRepo) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *KVRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
