// Package querycache memoizes gateway reads under composite keys and drops
// them when a mutation makes them obsolete.
package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/metrics"
)

const DefaultSize = 1024

// DefaultStaleTimes returns the freshness window per kind. Tree reads and the
// summary are always stale so they track live filters.
func DefaultStaleTimes(search, priceAlerts time.Duration) map[Kind]time.Duration {
	return map[Kind]time.Duration{
		KindLibraries:        0,
		KindSets:             0,
		KindCards:            0,
		KindStock:            0,
		KindSummary:          0,
		KindGrouped:          0,
		KindTransactionItems: 0,
		KindSearch:           search,
		KindPriceAlerts:      priceAlerts,
	}
}

type Options struct {
	Size       int
	StaleTimes map[Kind]time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

type entry struct {
	key        Key
	data       any
	fetchedAt  time.Time
	staleAfter time.Duration
}

func (e *entry) fresh(now time.Time) bool {
	return now.Sub(e.fetchedAt) < e.staleAfter
}

// flight tracks a fetch in progress so an invalidation that lands before it
// resolves keeps the result out of the cache.
type flight struct {
	key   Key
	dirty bool
}

// Listener is told which prefixes were invalidated.
type Listener func(prefixes []Prefix)

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    *lru.Cache[string, *entry]
	inflight   map[string]*flight
	staleTimes map[Kind]time.Duration
	listeners  []Listener
	now        func() time.Time

	group      singleflight.Group
	refreshing sync.WaitGroup
}

func New(opts Options) (*Cache, error) {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	staleTimes := opts.StaleTimes
	if staleTimes == nil {
		staleTimes = DefaultStaleTimes(30*time.Second, 5*time.Minute)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:    entries,
		inflight:   make(map[string]*flight),
		staleTimes: staleTimes,
		now:        now,
	}, nil
}

// FetchFunc loads the value for a key from the gateway.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Get serves key from the cache. A fresh entry is returned as is; a stale one
// is returned while a background refetch replaces it; a missing entry is
// fetched synchronously. Concurrent fetches of one key share a single call.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch FetchFunc[T]) (T, error) {
	var zero T
	id := key.String()

	c.mu.Lock()
	e, ok := c.entries.Get(id)
	c.mu.Unlock()

	if ok {
		data, isT := e.data.(T)
		if !isT {
			return zero, errs.Newf(errs.KindInternal, "cache entry %s holds %T", id, e.data)
		}
		if e.fresh(c.now()) {
			metrics.CacheLookupsTotal.WithLabelValues(string(key.Kind), "hit").Inc()
			return data, nil
		}
		metrics.CacheLookupsTotal.WithLabelValues(string(key.Kind), "stale").Inc()
		c.refresh(context.WithoutCancel(ctx), key, untyped(fetch))
		return data, nil
	}

	metrics.CacheLookupsTotal.WithLabelValues(string(key.Kind), "miss").Inc()
	v, err, _ := c.group.Do(id, func() (any, error) {
		return c.load(ctx, key, untyped(fetch))
	})
	if err != nil {
		return zero, err
	}
	data, isT := v.(T)
	if !isT {
		return zero, errs.Newf(errs.KindInternal, "cache fetch for %s returned %T", id, v)
	}
	return data, nil
}

func untyped[T any](fetch FetchFunc[T]) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

func (c *Cache) load(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	id := key.String()
	f := &flight{key: key}

	c.mu.Lock()
	c.inflight[id] = f
	c.mu.Unlock()

	data, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
	if err != nil {
		return nil, err
	}
	if f.dirty {
		log.Debug().Str("key", id).Msg("discarding fetch invalidated while in flight")
		return data, nil
	}
	c.entries.Add(id, &entry{
		key:        key,
		data:       data,
		fetchedAt:  c.now(),
		staleAfter: c.staleTimes[key.Kind],
	})
	return data, nil
}

func (c *Cache) refresh(ctx context.Context, key Key, fetch func(context.Context) (any, error)) {
	id := key.String()
	ch := c.group.DoChan(id, func() (any, error) {
		return c.load(ctx, key, fetch)
	})
	c.refreshing.Add(1)
	go func() {
		defer c.refreshing.Done()
		res := <-ch
		if res.Err != nil {
			metrics.CacheBackgroundRefreshes.WithLabelValues("error").Inc()
			log.Warn().Err(res.Err).Str("key", id).Msg("background refresh failed, serving last known value")
			return
		}
		metrics.CacheBackgroundRefreshes.WithLabelValues("ok").Inc()
	}()
}

// Wait blocks until background refreshes started so far have finished.
func (c *Cache) Wait() {
	c.refreshing.Wait()
}

// Invalidate drops every entry matching any prefix and returns how many were
// dropped. Invalidating absent keys is a no-op.
func (c *Cache) Invalidate(prefixes ...Prefix) int {
	if len(prefixes) == 0 {
		return 0
	}

	c.mu.Lock()
	n := 0
	for _, id := range c.entries.Keys() {
		e, ok := c.entries.Peek(id)
		if ok && matchesAny(prefixes, e.key) {
			c.entries.Remove(id)
			n++
		}
	}
	for _, f := range c.inflight {
		if matchesAny(prefixes, f.key) {
			f.dirty = true
		}
	}
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	metrics.CacheEntriesInvalidated.Add(float64(n))
	for _, l := range listeners {
		l(prefixes)
	}
	return n
}

// InvalidateMutation drops the reads made obsolete by m.
func (c *Cache) InvalidateMutation(m Mutation, mc MutationContext) int {
	prefixes := PrefixesFor(m, mc)
	metrics.CacheInvalidationsTotal.WithLabelValues(string(m)).Inc()
	n := c.Invalidate(prefixes...)
	log.Debug().
		Str("mutation", string(m)).
		Str("card_id", mc.CardID).
		Int("entries", n).
		Msg("cache invalidated")
	return n
}

// Subscribe registers l to run after every invalidation.
func (c *Cache) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Contains reports whether key currently has an entry, fresh or stale.
func (c *Cache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Contains(key.String())
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Purge drops every entry without notifying listeners.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

func matchesAny(prefixes []Prefix, key Key) bool {
	for _, p := range prefixes {
		if p.Matches(key) {
			return true
		}
	}
	return false
}
