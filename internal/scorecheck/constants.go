package scorecheck

import (
	"errors"
	"time"
)

// Default configuration constants.
const (
	DefaultRounds       = 5
	DefaultHitsPerRound = 3
	DefaultReaders      = 4
	DefaultPollInterval = 50 * time.Millisecond
	DefaultTimeout      = 10 * time.Second

	podiumSize      = 3
	promptWaitLimit = 30 * time.Second
)

// DefaultPlayers are the names submissions rotate through.
var DefaultPlayers = []string{"Alice", "Bob", "Cara"}

// Error constants.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrStatus       = errors.New("unexpected status")
	ErrInconsistent = errors.New("leaderboard inconsistent")
	ErrNoPrompt     = errors.New("submission prompt did not open")
)
