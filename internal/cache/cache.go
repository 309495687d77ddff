// Package cache holds whole-collection snapshots with a time-to-live.
//
// A Cache is owned by whoever constructs it and is passed to the stores that
// read through it. Snapshots are stored as JSON records in a Backend, so a
// value read from the cache never aliases the value that was written.
package cache

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Record is a stored snapshot.
type Record struct {
	Payload  []byte
	StoredAt time.Time
	TTL      time.Duration
}

// Fresh reports whether the record is still within its TTL at now.
func (r Record) Fresh(now time.Time) bool {
	return now.Sub(r.StoredAt) < r.TTL
}

// Backend stores records by key.
type Backend interface {
	Load(key string) (Record, bool, error)
	Save(key string, rec Record) error
	Delete(key string) error
	Clear() error
}

// Entry is a decoded snapshot.
type Entry[T any] struct {
	Data     T
	StoredAt time.Time
	TTL      time.Duration
}

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*options)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Cache is a typed view of one key in a Backend. Backend failures are
// logged and treated as misses.
type Cache[T any] struct {
	key     string
	ttl     time.Duration
	backend Backend
	opts    options
}

func New[T any](key string, ttl time.Duration, backend Backend, opts ...Option) *Cache[T] {
	o := options{
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Cache[T]{key: key, ttl: ttl, backend: backend, opts: o}
}

func (c *Cache[T]) Key() string        { return c.key }
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// Get returns the snapshot if one exists and is fresh.
func (c *Cache[T]) Get() (Entry[T], bool) {
	var entry Entry[T]
	rec, ok, err := c.backend.Load(c.key)
	if err != nil {
		c.opts.logger.Warn("cache load failed", "key", c.key, "error", err)
		return entry, false
	}
	if !ok || !rec.Fresh(c.opts.now()) {
		return entry, false
	}
	if err := json.Unmarshal(rec.Payload, &entry.Data); err != nil {
		c.opts.logger.Warn("cache decode failed", "key", c.key, "error", err)
		return entry, false
	}
	entry.StoredAt = rec.StoredAt
	entry.TTL = rec.TTL
	return entry, true
}

// Set overwrites the snapshot and restarts its TTL.
func (c *Cache[T]) Set(data T) {
	payload, err := json.Marshal(data)
	if err != nil {
		c.opts.logger.Warn("cache encode failed", "key", c.key, "error", err)
		return
	}
	rec := Record{Payload: payload, StoredAt: c.opts.now(), TTL: c.ttl}
	if err := c.backend.Save(c.key, rec); err != nil {
		c.opts.logger.Warn("cache save failed", "key", c.key, "error", err)
	}
}

// Invalidate drops the snapshot so the next Get misses.
func (c *Cache[T]) Invalidate() {
	if err := c.backend.Delete(c.key); err != nil {
		c.opts.logger.Warn("cache invalidate failed", "key", c.key, "error", err)
	}
}

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]Record)}
}

func (m *MemoryBackend) Load(key string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

func (m *MemoryBackend) Save(key string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = rec
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]Record)
	return nil
}
