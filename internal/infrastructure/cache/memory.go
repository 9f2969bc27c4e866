// Package cache provides the in-process result cache used when no shared
// Redis instance is configured.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/AAriam/rdkit/pkg/errors"
)

// ErrCacheMiss carries ErrCodeNotFound, matching the redis cache.
var ErrCacheMiss = errors.NotFound("cache miss")

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Memory is a size-bounded LRU with per-entry expiry. Values are stored
// JSON-encoded so callers never share mutable state through the cache.
type Memory struct {
	mu         sync.Mutex
	maxEntries int
	defaultTTL time.Duration
	ll         *list.List
	items      map[string]*list.Element
	now        func() time.Time
}

type Option func(*Memory)

func WithMaxEntries(n int) Option {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Memory) { m.defaultTTL = ttl }
}

func withClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		maxEntries: 10000,
		defaultTTL: time.Hour,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	el, ok := m.items[key]
	if !ok {
		m.mu.Unlock()
		return ErrCacheMiss
	}
	e := el.Value.(*entry)
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.removeElement(el)
		m.mu.Unlock()
		return ErrCacheMiss
	}
	m.ll.MoveToFront(el)
	raw := e.value
	m.mu.Unlock()

	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode cached value").WithDetail(key)
	}
	return nil
}

// Set stores value under key. A zero ttl uses the default; a negative ttl
// never expires.
func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode cache value").WithDetail(key)
	}
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry)
		e.value = raw
		e.expiresAt = expiresAt
		m.ll.MoveToFront(el)
		return nil
	}
	m.items[key] = m.ll.PushFront(&entry{key: key, value: raw, expiresAt: expiresAt})
	for m.ll.Len() > m.maxEntries {
		m.removeElement(m.ll.Back())
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if el, ok := m.items[k]; ok {
			m.removeElement(el)
		}
	}
	return nil
}

// Purge drops every entry and returns how many there were.
func (m *Memory) Purge(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(m.ll.Len())
	m.ll.Init()
	m.items = make(map[string]*list.Element)
	return n, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) removeElement(el *list.Element) {
	m.ll.Remove(el)
	delete(m.items, el.Value.(*entry).key)
}
