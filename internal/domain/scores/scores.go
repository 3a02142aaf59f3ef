// Package scores applies the per-name upsert policy on top of the remote
// store: one entry per player name, replaced only by a strictly higher score.
package scores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/bonk/internal/adapters/repository"
	"github.com/okian/bonk/pkg/logger"
	"github.com/okian/bonk/pkg/metrics"
)

// DefaultCollection is the store collection holding leaderboard entries.
const DefaultCollection = "scores"

// Result describes what a successful Submit did.
type Result int

const (
	ResultInserted Result = iota + 1
	ResultUpdated
	ResultUnchanged
)

func (r Result) String() string {
	switch r {
	case ResultInserted:
		return "inserted"
	case ResultUpdated:
		return "updated"
	case ResultUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Entry is a leaderboard entry as read back from the store.
type Entry struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Adapter submits and fetches scores through a repository.Store.
type Adapter struct {
	store      repository.Store
	collection string
	log        logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithCollection sets the collection name.
func WithCollection(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.collection = name
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAdapter creates an adapter over store.
func NewAdapter(store repository.Store, opts ...Option) *Adapter {
	a := &Adapter{store: store, collection: DefaultCollection, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit records score for name. The name is trimmed and compared
// case-sensitively. A missing entry is inserted; an existing one is
// updated only when score is strictly higher.
//
// The lookup and the write are separate store calls, so two concurrent
// submissions for a new name can both insert.
func (a *Adapter) Submit(ctx context.Context, name string, score int) (Result, error) {
	start := time.Now()
	res, err := a.submit(ctx, name, score)

	label := res.String()
	switch {
	case err == nil:
	case errors.Is(err, ErrValidation):
		label = "invalid"
	default:
		label = "failed"
	}
	metrics.RecordSubmission(label, float64(time.Since(start).Microseconds())/1000.0)
	return res, err
}

func (a *Adapter) submit(ctx context.Context, name string, score int) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if score < 0 {
		return 0, fmt.Errorf("%w: score must not be negative", ErrValidation)
	}

	existing, err := a.store.Query(ctx, a.collection, repository.Filter{Name: name})
	if err != nil {
		return 0, fmt.Errorf("%w: query: %w", ErrStore, err)
	}

	if len(existing) == 0 {
		if _, err := a.store.Insert(ctx, a.collection, repository.Record{Name: name, Score: score}); err != nil {
			return 0, fmt.Errorf("%w: insert: %w", ErrStore, err)
		}
		a.log.Info(ctx, "score inserted", logger.String("name", name), logger.Int("score", score))
		return ResultInserted, nil
	}

	best := existing[0]
	for _, r := range existing[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	if best.Score >= score {
		return ResultUnchanged, nil
	}
	if err := a.store.Update(ctx, a.collection, best.Key, repository.Fields{Score: score}); err != nil {
		return 0, fmt.Errorf("%w: update: %w", ErrStore, err)
	}
	a.log.Info(ctx, "score improved",
		logger.String("name", name),
		logger.Int("previous", best.Score),
		logger.Int("score", score),
	)
	return ResultUpdated, nil
}

// FetchAll returns every stored entry in store order.
func (a *Adapter) FetchAll(ctx context.Context) ([]Entry, error) {
	records, err := a.store.ReadAll(ctx, a.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: read all: %w", ErrStore, err)
	}
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		out = append(out, Entry{Key: r.Key, Name: r.Name, Score: r.Score, SubmittedAt: r.Timestamp})
	}
	metrics.UpdateStoredPlayers(len(out))
	return out, nil
}
