package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fronts a Cache with a load function. Concurrent misses for the same
// key share one call to load.
//
// Invalidate bumps a generation counter for the prefix. A load that started
// before the bump still answers the callers that were waiting on it but its
// result is not stored, and later callers start a fresh load.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

func NewLoader[T any](maxSize int, ttl time.Duration) *Loader[T] {
	return NewLoaderFor[T](NewLRUCache[T](maxSize, ttl))
}

// NewLoaderFor wraps an existing cache.
func NewLoaderFor[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c, gens: make(map[string]uint64)}
}

// generation sums the counters of every invalidated prefix of key. Callers
// hold l.mu.
func (l *Loader[T]) generation(key string) uint64 {
	var g uint64
	for prefix, n := range l.gens {
		if strings.HasPrefix(key, prefix) {
			g += n
		}
	}
	return g
}

// Get returns the cached value for key or calls load and caches its result.
// Errors are not cached. load runs detached from the cancellation of ctx
// because its result is shared; Get itself returns early when ctx is done.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	l.mu.Lock()
	gen := l.generation(key)
	l.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		l.mu.Lock()
		if l.generation(key) == gen {
			l.cache.Set(key, v)
		}
		l.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Invalidate drops every entry whose key starts with prefix and discards the
// results of loads for those keys that are still running.
func (l *Loader[T]) Invalidate(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gens[prefix]++
	return l.cache.DeletePrefix(prefix)
}

func (l *Loader[T]) CleanExpired() int { return l.cache.CleanExpired() }

func (l *Loader[T]) Size() int { return l.cache.Size() }
