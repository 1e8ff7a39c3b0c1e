package cachesvc

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
)

// Redis shares the cache between API instances.
// Each namespace has a version counter; Invalidate increments it.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ core.Cache = (*Redis)(nil)

func NewRedis(conf *core.Config) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		}),
		prefix: "khidmat:cache:",
	}
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) versionKey(namespace string) string {
	return c.prefix + namespace + ":version"
}

func (c *Redis) key(ctx context.Context, namespace, key string) (string, error) {
	v, err := c.client.Get(ctx, c.versionKey(namespace)).Result()
	if err == redis.Nil {
		v = "0"
	} else if err != nil {
		return "", errors.Wrap(err, "reading cache version")
	}
	return c.prefix + namespace + ":" + v + ":" + key, nil
}

func (c *Redis) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	k, err := c.key(ctx, namespace, key)
	if err != nil {
		return nil, false, err
	}
	value, err := c.client.Get(ctx, k).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrap(err, "reading cache")
	}
	return value, true, nil
}

func (c *Redis) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	k, err := c.key(ctx, namespace, key)
	if err != nil {
		return err
	}
	return errors.Wrap(c.client.Set(ctx, k, value, ttl).Err(), "writing cache")
}

func (c *Redis) Invalidate(ctx context.Context, namespaces ...string) error {
	pipe := c.client.TxPipeline()
	for _, ns := range namespaces {
		pipe.Incr(ctx, c.versionKey(ns))
	}
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "invalidating cache")
}
