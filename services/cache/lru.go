// Package cachesvc implements core.Cache with Redis or an in-process LRU.
package cachesvc

import (
	"context"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/trezcool/khidmat/core"
)

type lruEntry struct {
	value   []byte
	expires time.Time
}

// LRU keeps the most recently used entries in memory.
// Invalidate bumps the namespace version, so stale keys are never read again and age out.
type LRU struct {
	cache *lru.Cache[string, lruEntry]
	now   func() time.Time

	mu       sync.RWMutex
	versions map[string]int
}

var _ core.Cache = (*LRU)(nil)

func NewLRU(size int) (*LRU, error) {
	c, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRU{cache: c, now: time.Now, versions: make(map[string]int)}, nil
}

func (c *LRU) key(namespace, key string) string {
	c.mu.RLock()
	v := c.versions[namespace]
	c.mu.RUnlock()
	return namespace + ":" + strconv.Itoa(v) + ":" + key
}

func (c *LRU) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	k := c.key(namespace, key)
	e, ok := c.cache.Get(k)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.cache.Remove(k)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *LRU) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	e := lruEntry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.cache.Add(c.key(namespace, key), e)
	return nil
}

func (c *LRU) Invalidate(_ context.Context, namespaces ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ns := range namespaces {
		c.versions[ns]++
	}
	return nil
}
