// Package store gives callers a synchronous view of backend collections.
//
// Each store instance fetches through an injected cache, suppresses
// overlapping fetches of its own, applies mutations optimistically and
// drops responses that were overtaken by a newer fetch or mutation.
// Two store instances sharing a cache may still fetch at the same time.
package store

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/user/kiji/internal/cache"
)

type options struct {
	logger  *slog.Logger
	onFetch func()
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFetchHook sets fn to run after every fetch answered by the backend.
// Reads served from the cache do not call it.
func WithFetchHook(fn func()) Option {
	return func(o *options) {
		o.onFetch = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// base carries the bookkeeping shared by every store.
type base struct {
	mu       sync.Mutex
	loading  bool
	loaded   bool
	err      error
	inFlight bool
	gen      uint64

	subMu  sync.Mutex
	subs   map[int]func()
	nextID int

	logger  *slog.Logger
	onFetch func()
}

func (b *base) init(o options) {
	b.logger = o.logger
	b.onFetch = o.onFetch
}

// Subscribe registers fn to run after every state change. The returned
// func removes it.
func (b *base) Subscribe(fn func()) (unsubscribe func()) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func())
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.subMu.Lock()
		defer b.subMu.Unlock()
		delete(b.subs, id)
	}
}

func (b *base) notify() {
	b.subMu.Lock()
	fns := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// readFn describes one fetch. apply and fail run with b.mu held.
type readFn[S any] struct {
	call  func(context.Context) (S, error)
	apply func(S)
	fail  func(error)
}

// read fetches through c. It returns immediately when a fetch by this
// instance is already running. A result overtaken by a newer fetch or
// mutation is discarded.
func read[S any](ctx context.Context, b *base, c *cache.Cache[S], useCache bool, fn readFn[S]) error {
	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return nil
	}
	if useCache {
		if entry, ok := c.Get(); ok {
			fn.apply(entry.Data)
			b.loading = false
			b.loaded = true
			b.mu.Unlock()
			b.notify()
			return nil
		}
	}
	b.inFlight = true
	b.loading = true
	b.err = nil
	b.gen++
	gen := b.gen
	b.mu.Unlock()
	b.notify()

	data, err := fn.call(ctx)

	b.mu.Lock()
	b.inFlight = false
	b.loading = false
	if gen != b.gen {
		b.mu.Unlock()
		b.logger.Debug("discarding stale fetch", "key", c.Key())
		b.notify()
		return nil
	}
	b.loaded = true
	if err != nil {
		b.err = err
		if fn.fail != nil {
			fn.fail(err)
		}
		b.mu.Unlock()
		b.notify()
		return err
	}
	c.Set(data)
	fn.apply(data)
	b.mu.Unlock()
	if b.onFetch != nil {
		b.onFetch()
	}
	b.notify()
	return nil
}

// collection is a store over a list of items keyed by ID.
type collection[T any] struct {
	base
	items []T
	cache *cache.Cache[[]T]
	id    func(T) int64
}

func newCollection[T any](c *cache.Cache[[]T], id func(T) int64, o options) *collection[T] {
	col := &collection[T]{items: []T{}, cache: c, id: id}
	col.init(o)
	return col
}

func (c *collection[T]) fetch(ctx context.Context, useCache bool, call func(context.Context) ([]T, error)) error {
	return read(ctx, &c.base, c.cache, useCache, readFn[[]T]{
		call: call,
		apply: func(items []T) {
			if items == nil {
				items = []T{}
			}
			c.items = items
		},
	})
}

// Invalidate drops the cached list so the next Load goes to the backend.
func (c *collection[T]) Invalidate() {
	c.cache.Invalidate()
}

func (c *collection[T]) snapshot() ([]T, bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.items), c.loading, c.loaded, c.err
}

// change describes a transactional mutation of a collection.
type change[T, R any] struct {
	// speculate, if set, is applied before effect runs. The returned undo
	// reverts only that change on the items current at failure time.
	speculate func([]T) (items []T, undo func([]T) []T)
	effect    func(context.Context) (R, error)
	// commit folds the effect result into the items after success.
	commit func([]T, R) []T
}

// transact applies the speculative change, runs the effect and then
// commits or undoes the speculation. Mutations that finished in the
// meantime are kept. A successful change invalidates the cache; every
// change supersedes in-flight fetches.
func transact[T, R any](ctx context.Context, c *collection[T], ch change[T, R]) (R, error) {
	var undo func([]T) []T
	c.mu.Lock()
	c.gen++
	c.err = nil
	if ch.speculate != nil {
		c.items, undo = ch.speculate(clone(c.items))
	}
	c.mu.Unlock()
	if ch.speculate != nil {
		c.notify()
	}

	res, err := ch.effect(ctx)

	c.mu.Lock()
	if err != nil {
		if undo != nil {
			c.items = undo(clone(c.items))
		}
		c.err = err
		c.mu.Unlock()
		c.notify()
		return res, err
	}
	if ch.commit != nil {
		c.items = ch.commit(c.items, res)
	}
	c.cache.Invalidate()
	c.mu.Unlock()
	c.notify()
	return res, nil
}

func (c *collection[T]) appendItem(items []T, item T) []T {
	return append(items, item)
}

func (c *collection[T]) replaceItem(items []T, id int64, item T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		if c.id(it) == id {
			out[i] = item
		} else {
			out[i] = it
		}
	}
	return out
}

// takeID removes the item with id and returns an undo that puts it back
// at its old index, unless an item with that ID has reappeared.
func (c *collection[T]) takeID(items []T, id int64) ([]T, func([]T) []T) {
	idx := -1
	for i, it := range items {
		if c.id(it) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return items, nil
	}
	removed := items[idx]
	undo := func(current []T) []T {
		for _, it := range current {
			if c.id(it) == id {
				return current
			}
		}
		at := min(idx, len(current))
		return slices.Insert(current, at, removed)
	}
	return c.removeID(items, id), undo
}

func (c *collection[T]) removeID(items []T, id int64) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if c.id(it) != id {
			out = append(out, it)
		}
	}
	return out
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
