// Package requestcache memoizes lookups for the lifetime of one request.
//
// A Registry travels in the request context. Code that wants request-scoped
// memoization asks for a namespace; without a registry in the context every
// lookup goes straight to its loader. Clearing a namespace (or all of them)
// makes the next lookup observe fresh data within the same request.
package requestcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/zjrosen/discussions/internal/cachemanager"
	"github.com/zjrosen/discussions/internal/log"
)

// Registry holds one cache per namespace.
type Registry struct {
	mu     sync.Mutex
	caches map[string]*cachemanager.InMemoryCacheManager[any]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{caches: make(map[string]*cachemanager.InMemoryCacheManager[any])}
}

type registryContextKey struct{}

// WithRegistry stores r in ctx.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, registryContextKey{}, r)
}

// FromContext returns the registry stored in ctx or nil.
func FromContext(ctx context.Context) *Registry {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(registryContextKey{}).(*Registry)
	return r
}

// Namespace returns the cache for name, creating it on first use.
func (r *Registry) Namespace(name string) cachemanager.CacheManager[any] {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.caches[name]
	if !ok {
		c = cachemanager.NewInMemoryCacheManager[any]("request:"+name, cachemanager.NoExpiration, cachemanager.NoCleanup)
		r.caches[name] = c
	}
	return c
}

// Clear flushes the named namespace. An empty name flushes every namespace.
func (r *Registry) Clear(ctx context.Context, name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		for _, c := range r.caches {
			c.Flush(ctx)
		}
		return
	}
	if c, ok := r.caches[name]; ok {
		c.Flush(ctx)
	}
}

// ClearCache flushes a namespace of the registry in ctx, or every
// namespace when name is empty. No-op without a registry.
func ClearCache(ctx context.Context, name string) {
	FromContext(ctx).Clear(ctx, name)
}

// Memoize returns the value cached under namespace/key in the request
// registry, calling load on a miss. Without a registry it always calls load.
func Memoize[V any](ctx context.Context, namespace, key string, load func(ctx context.Context) (V, error)) (V, error) {
	var cache cachemanager.CacheManager[any]
	if r := FromContext(ctx); r != nil {
		cache = r.Namespace(namespace)
	}

	rtc := cachemanager.NewReadThroughCache[any, struct{}](cache, func(ctx context.Context, _ struct{}) (any, error) {
		return load(ctx)
	}, false)

	value, err := rtc.Get(ctx, key, struct{}{}, cachemanager.NoExpiration)
	if err != nil {
		var zero V
		return zero, err
	}
	v, ok := value.(V)
	if !ok {
		var zero V
		log.Error(log.CatCache, "request cache type mismatch", "namespace", namespace, "key", key)
		return zero, fmt.Errorf("request cache %s/%s holds %T", namespace, key, value)
	}
	return v, nil
}
