package game

import (
	"math/rand"
	"time"

	"github.com/okian/bonk/internal/domain/clock"
	"github.com/okian/bonk/pkg/logger"
)

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock driving countdown, spawns and expiry.
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRand sets the random source for spawn delays and slot choice.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithRenderer sets the renderer receiving visual instructions.
func WithRenderer(r Renderer) Option {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithImageSource sets the function queried for the target image each time one appears.
func WithImageSource(f func() string) Option {
	return func(s *Session) {
		if f != nil {
			s.image = f
		}
	}
}

// WithPromptHandler sets the callback invoked once per finished round.
func WithPromptHandler(f func(Prompt)) Option {
	return func(s *Session) {
		if f != nil {
			s.onPrompt = f
		}
	}
}

// WithSlots sets the number of target slots.
func WithSlots(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.board = NewBoard(n)
		}
	}
}

// WithRoundSeconds sets the round length.
func WithRoundSeconds(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.roundSeconds = n
		}
	}
}

// WithSpawnDelay sets the range [lo, hi) the delay between targets is
// drawn from. A zero lo is allowed; hi must be positive.
func WithSpawnDelay(lo, hi time.Duration) Option {
	return func(s *Session) {
		if lo >= 0 {
			s.minSpawnDelay = lo
		}
		if hi > 0 {
			s.maxSpawnDelay = hi
		}
	}
}

// WithTargetWindow sets how long a target stays up before it expires.
func WithTargetWindow(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.targetWindow = d
		}
	}
}

// WithPromptDelay sets the pause between round end and the submission prompt.
func WithPromptDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.promptDelay = d
		}
	}
}
