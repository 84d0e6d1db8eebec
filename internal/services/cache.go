package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EntryState is the lifecycle position of one cache key.
type EntryState int

const (
	StateEmpty EntryState = iota
	StateFresh
	StateStale
	StateRefreshing
)

func (s EntryState) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateRefreshing:
		return "refreshing"
	default:
		return "empty"
	}
}

// flight is one in-flight upstream fetch. Every caller that arrives while it
// is open waits on done and reads the same outcome.
type flight struct {
	done chan struct{}
	val  any
	err  error
}

type entry struct {
	value     any
	hasValue  bool
	fetchedAt time.Time
	expiresAt time.Time
	inflight  *flight
}

// Cache is a keyed TTL cache with request coalescing: at most one upstream
// fetch per key is ever in flight, expired values are served when a refresh
// fails, and all mutation goes through getOrFetch under one mutex. The fetch
// itself runs outside the lock; only the flight handle lives under it.
//
// An optional SnapshotStore receives a copy of every good value and is
// consulted as a last resort when memory holds nothing (fresh process, dead
// providers).
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	snap    SnapshotStore
	hardTTL time.Duration

	now func() time.Time
}

func NewCache(snap SnapshotStore, hardTTL time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		snap:    snap,
		hardTTL: hardTTL,
		now:     time.Now,
	}
}

// State reports the current lifecycle position of key.
func (c *Cache) State(key string) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return StateEmpty
	}
	if e.inflight != nil {
		return StateRefreshing
	}
	if !e.hasValue {
		return StateEmpty
	}
	if c.now().Before(e.expiresAt) {
		return StateFresh
	}
	return StateStale
}

// ExpiresAt reports when key's value lapses; ok is false for keys that never
// held a value.
func (c *Cache) ExpiresAt(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasValue {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

func (c *Cache) getOrFetch(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}

	if e.hasValue && c.now().Before(e.expiresAt) {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}

	if f := e.inflight; f != nil {
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.done:
			return f.val, f.err
		}
	}

	f := &flight{done: make(chan struct{})}
	e.inflight = f
	c.mu.Unlock()

	v, err := fn(ctx)

	c.mu.Lock()
	e.inflight = nil
	switch {
	case err == nil:
		now := c.now()
		e.value = v
		e.hasValue = true
		e.fetchedAt = now
		e.expiresAt = now.Add(ttl)
		f.val = v
	case e.hasValue:
		// Refresh failed but an expired value exists: every waiter gets
		// the stale value instead of the error.
		log.WithFields(log.Fields{"key": key, "err": err}).Warn("refresh failed, serving stale")
		f.val = e.value
	default:
		f.err = err
	}
	close(f.done)
	c.mu.Unlock()

	return f.val, f.err
}

// GetOrFetch is the typed entry point over Cache. On success the value is
// also written through to the snapshot store; when both memory and fn come
// up empty the snapshot store's last-good copy is the final fallback.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	wrapped := func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if c.snap != nil {
			if b, merr := json.Marshal(v); merr == nil {
				if serr := c.snap.Set(ctx, snapKey(key), b, c.hardTTL); serr != nil {
					log.WithFields(log.Fields{"key": key, "err": serr}).Debug("snapshot write failed")
				}
			}
		}
		return v, nil
	}

	v, err := c.getOrFetch(ctx, key, ttl, wrapped)
	if err == nil {
		return v.(T), nil
	}

	var out T
	if c.snap != nil {
		if b, ok := c.snap.Get(ctx, snapKey(key)); ok {
			if uerr := json.Unmarshal(b, &out); uerr == nil {
				log.WithFields(log.Fields{"key": key, "err": err}).Warn("serving last-good snapshot")
				return out, nil
			}
		}
	}
	return out, err
}

func snapKey(key string) string { return "snap:v1:" + key }
