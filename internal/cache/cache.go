// Package cache provides the process-local response cache.
//
// A Cache maps a composed request key to the payload of the last successful
// upstream call and the time it was stored. Entries are not removed when they
// expire; a later Put under the same key supersedes them. The cache is bounded
// by MaxEntries (least recently used entries go first) and an optional janitor
// drops expired entries periodically.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"go-space/internal/logging"
	"go-space/internal/metrics"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

// Placeholder stands in for absent optional key parts
const Placeholder = "null"

// DefaultMaxEntries bounds a cache created without WithMaxEntries
const DefaultMaxEntries = 1000

// Entry is one cached upstream response
type Entry struct {
	Timestamp time.Time
	Payload   json.RawMessage
}

type item struct {
	key   string
	entry Entry
}

// Loader fetches a fresh payload on a miss
type Loader func(ctx context.Context) (json.RawMessage, error)

// Cache is a TTL cache with an LRU size bound. Safe for concurrent use.
type Cache struct {
	name         string
	ttl          time.Duration
	maxEntries   int
	singleFlight bool
	now          func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List

	group singleflight.Group
}

// Option configures a Cache
type Option func(*Cache)

// WithMaxEntries bounds the number of entries
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithSingleFlight makes concurrent misses for one key share a single load
func WithSingleFlight(enabled bool) Option {
	return func(c *Cache) { c.singleFlight = enabled }
}

// New creates a cache; name labels its metrics
func New(name string, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		name:       name,
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		items:      make(map[string]*list.Element),
		order:      list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key composes a cache key from a domain and its ordered parameters.
// Empty parameters become Placeholder.
func Key(domain string, parts ...string) string {
	b := strings.Builder{}
	b.WriteString(escape(domain))
	for _, p := range parts {
		b.WriteByte(':')
		if p == "" {
			b.WriteString(Placeholder)
			continue
		}
		b.WriteString(escape(p))
	}
	return b.String()
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`)

func escape(s string) string {
	return keyEscaper.Replace(s)
}

// TTL returns the configured time-to-live
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry stored under key, expired or not. No I/O.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return Entry{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*item).entry, true
}

// Put stores payload under key with the current time, replacing any prior entry
func (c *Cache) Put(key string, payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{Timestamp: c.now(), Payload: payload}
	if el, ok := c.items[key]; ok {
		el.Value.(*item).entry = entry
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&item{key: key, entry: entry})
	for c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Back())
		metrics.CacheEvictions.Inc()
	}
	metrics.CacheEntries.Set(float64(len(c.items)))
}

// IsValid reports whether entry is younger than the TTL
func (c *Cache) IsValid(entry Entry) bool {
	return c.now().Sub(entry.Timestamp) < c.ttl
}

// Len returns the number of stored entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*item).key)
}

// Fetch returns the valid entry for key, or calls load and stores its result.
// hit is true when no load happened. Failed loads are not cached.
func (c *Cache) Fetch(ctx context.Context, key string, load Loader) (payload json.RawMessage, hit bool, err error) {
	if e, ok := c.Get(key); ok && c.IsValid(e) {
		metrics.CacheHits.WithLabelValues(c.name).Inc()
		logging.Ctx(ctx).Debug().Str("cache", c.name).Str("key", key).Msg("cache hit")
		return e.Payload, true, nil
	}
	metrics.CacheMisses.WithLabelValues(c.name).Inc()

	if !c.singleFlight {
		data, err := load(ctx)
		if err != nil {
			return nil, false, err
		}
		c.Put(key, data)
		return data, false, nil
	}

	// The shared load must outlive the caller that happened to start it.
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.Put(key, data)
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(json.RawMessage), false, nil
}

// Sweep removes expired entries and returns how many were dropped
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.Sub(el.Value.(*item).entry.Timestamp) >= c.ttl {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	if removed > 0 {
		metrics.CacheEvictions.Add(float64(removed))
		metrics.CacheEntries.Set(float64(len(c.items)))
	}
	return removed
}

// StartJanitor sweeps expired entries every interval until ctx is done
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					logging.Debug().Str("cache", c.name).Int("removed", n).Msg("cache sweep")
				}
			}
		}
	}()
}
