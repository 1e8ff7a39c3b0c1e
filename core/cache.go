package core

import (
	"context"
	"time"
)

// Cache stores rendered public responses.
// Keys live in namespaces (one per entity); Invalidate drops a whole namespace at once.
type Cache interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, namespaces ...string) error
}
