// Package repository provides the remote score store used by the
// submission pipeline: a SQLite-backed store and an in-memory one.
package repository

import (
	"context"
	"time"
)

// Record is one stored score entry. Key and Timestamp are assigned by the store.
type Record struct {
	Key       string
	Name      string
	Score     int
	Timestamp time.Time
}

// Filter selects records by exact, case-sensitive name.
type Filter struct {
	Name string
}

// Fields holds the values an Update overwrites. The store refreshes the
// record timestamp on every update.
type Fields struct {
	Score int
}

// Store is the document-store surface the score adapter relies on.
// Collections are created on first use.
type Store interface {
	// Query returns the records of collection matching f.
	Query(ctx context.Context, collection string, f Filter) ([]Record, error)
	// Insert adds r and returns the generated key.
	Insert(ctx context.Context, collection string, r Record) (string, error)
	// Update overwrites the fields of the record with key.
	// Returns ErrNotFound if no such record exists.
	Update(ctx context.Context, collection, key string, f Fields) error
	// ReadAll returns every record of collection in no particular order.
	ReadAll(ctx context.Context, collection string) ([]Record, error)
	// Close releases the underlying resources.
	Close() error
}

func since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
