package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bonk/pkg/metrics"
)

// MemoryStore is a process-local Store. It is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
	now         func() time.Time
	closed      bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		collections: make(map[string]map[string]Record),
		now:         o.now,
	}
}

func (m *MemoryStore) checkLocked(collection string) error {
	if m.closed {
		return ErrClosed
	}
	if !collectionName.MatchString(collection) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	return nil
}

// Query returns the records whose name equals f.Name exactly.
func (m *MemoryStore) Query(_ context.Context, collection string, f Filter) ([]Record, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("query", since(start)) }()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkLocked(collection); err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range m.collections[collection] {
		if r.Name == f.Name {
			out = append(out, r)
		}
	}
	return out, nil
}

// Insert stores r under a new uuid key and the current timestamp.
func (m *MemoryStore) Insert(_ context.Context, collection string, r Record) (string, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("insert", since(start)) }()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(collection); err != nil {
		return "", err
	}
	c, ok := m.collections[collection]
	if !ok {
		c = make(map[string]Record)
		m.collections[collection] = c
	}
	r.Key = uuid.NewString()
	r.Timestamp = m.now().UTC()
	c[r.Key] = r
	return r.Key, nil
}

// Update overwrites the score of key and refreshes its timestamp.
func (m *MemoryStore) Update(_ context.Context, collection, key string, f Fields) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("update", since(start)) }()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(collection); err != nil {
		return err
	}
	r, ok := m.collections[collection][key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	r.Score = f.Score
	r.Timestamp = m.now().UTC()
	m.collections[collection][key] = r
	return nil
}

// ReadAll returns every record in collection.
func (m *MemoryStore) ReadAll(_ context.Context, collection string) ([]Record, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("read_all", since(start)) }()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkLocked(collection); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(m.collections[collection]))
	for _, r := range m.collections[collection] {
		out = append(out, r)
	}
	return out, nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
