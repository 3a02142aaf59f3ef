package scorecheck

import (
	"fmt"
)

// VerifyBoard checks the ordering invariants of a leaderboard: ranks run
// from 1 without gaps, scores never increase, ties are ordered by
// earliest submission then name, only the first three rows are on the
// podium, and no name appears twice.
func VerifyBoard(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: row %d has rank %d", ErrInconsistent, i, e.Rank)
		}
		if e.Podium != (e.Rank <= podiumSize) {
			return fmt.Errorf("%w: rank %d podium=%t", ErrInconsistent, e.Rank, e.Podium)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: %q listed twice", ErrInconsistent, e.Name)
		}
		seen[e.Name] = struct{}{}

		if i == 0 {
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Score > prev.Score:
			return fmt.Errorf("%w: rank %d (%d) above rank %d (%d)", ErrInconsistent, e.Rank, e.Score, prev.Rank, prev.Score)
		case e.Score < prev.Score:
		case e.SubmittedAt.Before(prev.SubmittedAt):
			return fmt.Errorf("%w: tie at %d not ordered by submission time", ErrInconsistent, e.Score)
		case e.SubmittedAt.Equal(prev.SubmittedAt) && e.Name < prev.Name:
			return fmt.Errorf("%w: tie at %d not ordered by name", ErrInconsistent, e.Score)
		}
	}
	return nil
}

// VerifyExpected checks that every player in expected is listed with
// exactly the expected best score. Players missing from a truncated
// board are skipped.
func VerifyExpected(board Leaderboard, expected map[string]int) error {
	byName := make(map[string]int, len(board.Entries))
	for _, e := range board.Entries {
		byName[e.Name] = e.Score
	}
	truncated := board.Total > len(board.Entries)
	for name, want := range expected {
		got, ok := byName[name]
		switch {
		case !ok && truncated:
			continue
		case !ok:
			return fmt.Errorf("%w: %q missing", ErrInconsistent, name)
		case got != want:
			return fmt.Errorf("%w: %q has %d, want best score %d", ErrInconsistent, name, got, want)
		}
	}
	return nil
}
