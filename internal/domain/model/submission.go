// Package model contains the payloads passed between the service and the
// submission pipeline.
package model

import (
	"strconv"
	"time"
)

// Submission is a request to record the score of a finished round.
type Submission struct {
	ID         string    // uuid, for log correlation
	Round      uint64    // round the score belongs to
	Name       string    // player name as typed
	Score      int       // final score of the round
	EnqueuedAt time.Time // when the service accepted the request
}

// RoundKey identifies the round for the in-flight guard.
func (s Submission) RoundKey() string {
	return RoundKey(s.Round)
}

// RoundKey formats a round number as a guard key.
func RoundKey(round uint64) string {
	return "round-" + strconv.FormatUint(round, 10)
}
