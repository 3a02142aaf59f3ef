package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/bonk/pkg/logger"
	"github.com/okian/bonk/pkg/metrics"
)

var collectionName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// SQLiteStore keeps every collection in one table keyed by (collection, key).
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	log    logger.Logger
	closed atomic.Bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open db: %w", err)
	}
	// One writer keeps the in-memory database shared and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: o.now, log: o.log}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			key TEXT NOT NULL,
			name TEXT NOT NULL,
			score INTEGER NOT NULL,
			submitted_at INTEGER NOT NULL,
			PRIMARY KEY (collection, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_collection_name ON records(collection, name)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("repository: migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) check(collection string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !collectionName.MatchString(collection) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	return nil
}

// observe records latency and failures of one operation.
func (s *SQLiteStore) observe(ctx context.Context, op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, since(start))
	if err != nil {
		metrics.RecordStoreError(op)
		s.log.Error(ctx, "store operation failed", logger.String("op", op), logger.Error(err))
	}
}

// Query returns the records whose name equals f.Name exactly.
func (s *SQLiteStore) Query(ctx context.Context, collection string, f Filter) (out []Record, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "query", start, err) }()

	if err = s.check(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, name, score, submitted_at FROM records WHERE collection = ? AND name = ? ORDER BY submitted_at`,
		collection, f.Name)
	if err != nil {
		return nil, fmt.Errorf("repository: query: %w", err)
	}
	return scanRecords(rows)
}

// Insert stores r under a new uuid key and the current timestamp.
func (s *SQLiteStore) Insert(ctx context.Context, collection string, r Record) (key string, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "insert", start, err) }()

	if err = s.check(collection); err != nil {
		return "", err
	}
	key = uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (collection, key, name, score, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		collection, key, r.Name, r.Score, s.now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("repository: insert: %w", err)
	}
	return key, nil
}

// Update overwrites the score of key and refreshes its timestamp.
func (s *SQLiteStore) Update(ctx context.Context, collection, key string, f Fields) (err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordStoreLatency("update", since(start))
			return
		}
		s.observe(ctx, "update", start, err)
	}()

	if err = s.check(collection); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET score = ?, submitted_at = ? WHERE collection = ? AND key = ?`,
		f.Score, s.now().UnixNano(), collection, key)
	if err != nil {
		return fmt.Errorf("repository: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// ReadAll returns every record in collection.
func (s *SQLiteStore) ReadAll(ctx context.Context, collection string) (out []Record, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "read_all", start, err) }()

	if err = s.check(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, name, score, submitted_at FROM records WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("repository: read all: %w", err)
	}
	return scanRecords(rows)
}

// Close closes the database. Further calls return ErrClosed.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			r  Record
			ts int64
		)
		if err := rows.Scan(&r.Key, &r.Name, &r.Score, &ts); err != nil {
			return nil, fmt.Errorf("repository: scan: %w", err)
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: rows: %w", err)
	}
	return out, nil
}
