// Package leaderboard orders stored score entries into ranked rows.
package leaderboard

import (
	"cmp"
	"errors"
	"iter"
	"slices"
	"time"

	"github.com/okian/bonk/internal/domain/scores"
)

// ErrNoScores is returned by Leader on an empty board.
var ErrNoScores = errors.New("no scores yet")

// PodiumSize is the number of top ranks highlighted.
const PodiumSize = 3

// Row is one ranked leaderboard line.
type Row struct {
	Rank        int       `json:"rank"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
	Podium      bool      `json:"podium"`
}

// Board is an ordered, immutable leaderboard.
type Board struct {
	rows []Row
}

// Present sorts entries by score descending. Equal scores go to whoever
// reached them first, then by name, so the order never depends on how
// the store returned the entries. Ranks are 1-based positions.
func Present(entries []scores.Entry) Board {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b scores.Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	rows := make([]Row, len(sorted))
	for i, e := range sorted {
		rows[i] = Row{
			Rank:        i + 1,
			Name:        e.Name,
			Score:       e.Score,
			SubmittedAt: e.SubmittedAt,
			Podium:      i < PodiumSize,
		}
	}
	return Board{rows: rows}
}

// All yields the rows in rank order. The sequence can be ranged over any number of times.
func (b Board) All() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, r := range b.rows {
			if !yield(r) {
				return
			}
		}
	}
}

// Rows returns a copy of the rows.
func (b Board) Rows() []Row {
	return slices.Clone(b.rows)
}

// Len returns the number of rows.
func (b Board) Len() int { return len(b.rows) }

// Empty reports whether there are no scores.
func (b Board) Empty() bool { return len(b.rows) == 0 }

// Top returns the first n rows. n <= 0 returns the whole board.
func (b Board) Top(n int) Board {
	if n <= 0 || n >= len(b.rows) {
		return b
	}
	return Board{rows: b.rows[:n]}
}

// Leader returns the first-ranked row.
func (b Board) Leader() (Row, error) {
	if b.Empty() {
		return Row{}, ErrNoScores
	}
	return b.rows[0], nil
}
