package local

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

type value struct {
	data     string
	expireAt time.Time // zero means no expiry
}

func (v value) expired(now time.Time) bool {
	return !v.expireAt.IsZero() && now.After(v.expireAt)
}

type member struct {
	name  string
	score float64
}

// LocalCache is an in-process stand-in for Redis used when no Redis
// address is configured. A single mutex guards every structure.
type LocalCache struct {
	mu     sync.Mutex
	kv     map[string]value
	hashes map[string]map[string]string
	zsets  map[string][]member // score descending, then name ascending
	lists  map[string][]string

	gcInterval time.Duration
	stopGC     chan struct{}
	closeOnce  sync.Once
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		kv:         make(map[string]value),
		hashes:     make(map[string]map[string]string),
		zsets:      make(map[string][]member),
		lists:      make(map[string][]string),
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine.
func (c *LocalCache) Close() {
	c.closeOnce.Do(func() { close(c.stopGC) })
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			c.mu.Lock()
			for k, v := range c.kv {
				if v.expired(now) {
					delete(c.kv, k)
				}
			}
			c.mu.Unlock()
		case <-c.stopGC:
			return
		}
	}
}

// lookup returns a live KV value. Caller holds c.mu.
func (c *LocalCache) lookup(key string) (value, bool) {
	v, ok := c.kv[key]
	if !ok {
		return value{}, false
	}
	if v.expired(time.Now()) {
		delete(c.kv, key)
		return value{}, false
	}
	return v, true
}

func newValue(data string, ttl time.Duration) value {
	v := value{data: data}
	if ttl > 0 {
		v.expireAt = time.Now().Add(ttl)
	}
	return v
}

// ---- KV ----

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return v.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, data string, ttl time.Duration) error {
	c.mu.Lock()
	c.kv[key] = newValue(data, ttl)
	c.mu.Unlock()
	return nil
}

// Del removes keys of any kind.
func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.kv, k)
		delete(c.hashes, k)
		delete(c.zsets, k)
		delete(c.lists, k)
	}
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookup(key)
	return ok, nil
}

func (c *LocalCache) SetNX(_ context.Context, key, data string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lookup(key); ok {
		return false, nil
	}
	c.kv[key] = newValue(data, ttl)
	return true, nil
}

// ---- Hash ----

func (c *LocalCache) HSet(_ context.Context, key, field, data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.hashes[key]
	if !ok {
		h = make(map[string]string)
		c.hashes[key] = h
	}
	h[field] = data
	return nil
}

func (c *LocalCache) HGet(_ context.Context, key, field string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.hashes[key][field]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (c *LocalCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.hashes[key]))
	for f, v := range c.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (c *LocalCache) HDel(_ context.Context, key string, fields ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range fields {
		delete(c.hashes[key], f)
	}
	return nil
}

// ---- ZSet ----

func (c *LocalCache) ZAdd(_ context.Context, key string, score float64, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := slices.DeleteFunc(c.zsets[key], func(m member) bool { return m.name == name })
	z = append(z, member{name: name, score: score})
	slices.SortFunc(z, func(a, b member) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	c.zsets[key] = z
	return nil
}

func (c *LocalCache) ZRem(_ context.Context, key string, names ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zsets[key] = slices.DeleteFunc(c.zsets[key], func(m member) bool {
		return slices.Contains(names, m.name)
	})
	return nil
}

func (c *LocalCache) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := c.zsets[key]
	lo, hi, ok := bounds(int64(len(z)), start, stop)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, 0, hi-lo+1)
	for _, m := range z[lo : hi+1] {
		out = append(out, m.name)
	}
	return out, nil
}

func (c *LocalCache) ZScore(_ context.Context, key, name string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.zsets[key] {
		if m.name == name {
			return m.score, nil
		}
	}
	return 0, ErrNotFound
}

// ---- List ----

// LPush prepends values one at a time, so the last value ends up first.
func (c *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.lists[key]
	for _, v := range values {
		l = slices.Insert(l, 0, v)
	}
	c.lists[key] = l
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.lists[key]
	lo, hi, ok := bounds(int64(len(l)), start, stop)
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(l[lo : hi+1]), nil
}

func (c *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.lists[key]
	lo, hi, ok := bounds(int64(len(l)), start, stop)
	if !ok {
		delete(c.lists, key)
		return nil
	}
	c.lists[key] = slices.Clone(l[lo : hi+1])
	return nil
}

// bounds resolves Redis-style inclusive indexes, where negative values
// count from the end, against a length n.
func bounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)
	if n == 0 || start > stop {
		return 0, 0, false
	}
	return start, stop, true
}
