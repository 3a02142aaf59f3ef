// Package dedupe tracks keys that have work in flight so a second request
// for the same key is refused until the first one finishes.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMaxSize = 1024

// Guard admits at most one holder per key.
type Guard interface {
	// Acquire takes key. It returns false if key is already held.
	Acquire(ctx context.Context, key string) bool

	// Release frees key so it can be acquired again. Releasing a key
	// that is not held is a no-op.
	Release(ctx context.Context, key string)

	// Held reports whether key is currently held.
	Held(key string) bool

	Size() int
}

type entry struct {
	key      string
	acquired time.Time
}

// inMemoryGuard keeps held keys in acquisition order so the oldest can be
// evicted when the bound is reached.
type inMemoryGuard struct {
	mu      sync.Mutex
	held    map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int
	now     func() time.Time
}

// NewInMemoryGuard creates a guard with the given options.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		held:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *inMemoryGuard) Acquire(_ context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[key]; ok {
		return false
	}
	if g.maxSize > 0 && len(g.held) >= g.maxSize {
		g.evictOldestLocked()
	}
	g.held[key] = g.order.PushBack(&entry{key: key, acquired: g.now()})
	return true
}

func (g *inMemoryGuard) Release(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if el, ok := g.held[key]; ok {
		g.order.Remove(el)
		delete(g.held, key)
	}
}

func (g *inMemoryGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}

func (g *inMemoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}

// evictOldestLocked drops the key held longest. Must be called with g.mu held.
func (g *inMemoryGuard) evictOldestLocked() {
	front := g.order.Front()
	if front == nil {
		return
	}
	e := front.Value.(*entry) //nolint:forcetypeassert // list only holds *entry
	g.order.Remove(front)
	delete(g.held, e.key)
}
