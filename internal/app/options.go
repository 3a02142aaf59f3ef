package service

import (
	"math/rand"
	"time"

	"github.com/okian/bonk/internal/adapters/repository"
	"github.com/okian/bonk/internal/domain/clock"
	"github.com/okian/bonk/internal/domain/game"
	"github.com/okian/bonk/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of submission workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize caps the number of rounds tracked by the in-flight guard.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the remote score store. The service closes it on Stop.
// Without one, an in-memory store is used.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCollection sets the store collection holding scores.
func WithCollection(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.collection = name
		}
	}
}

// WithRenderer sets where visual instructions go.
func WithRenderer(r Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithClock sets the clock driving the session timers.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
			s.gameOpts = append(s.gameOpts, game.WithClock(c))
		}
	}
}

// WithRand sets the session's random source.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) {
		s.gameOpts = append(s.gameOpts, game.WithRand(r))
	}
}

// WithInitialTheme sets the theme selected at startup.
func WithInitialTheme(id string) Option {
	return func(s *Service) {
		s.initialTheme = id
	}
}

// WithSlots sets the number of target slots.
func WithSlots(n int) Option {
	return func(s *Service) {
		s.gameOpts = append(s.gameOpts, game.WithSlots(n))
	}
}

// WithRoundSeconds sets the round length.
func WithRoundSeconds(n int) Option {
	return func(s *Service) {
		s.gameOpts = append(s.gameOpts, game.WithRoundSeconds(n))
	}
}

// WithSpawnDelay sets the range of the delay between targets.
func WithSpawnDelay(lo, hi time.Duration) Option {
	return func(s *Service) {
		s.gameOpts = append(s.gameOpts, game.WithSpawnDelay(lo, hi))
	}
}

// WithTargetWindow sets how long a target stays up.
func WithTargetWindow(d time.Duration) Option {
	return func(s *Service) {
		s.gameOpts = append(s.gameOpts, game.WithTargetWindow(d))
	}
}

// WithPromptDelay sets the pause between round end and the submission prompt.
func WithPromptDelay(d time.Duration) Option {
	return func(s *Service) {
		s.gameOpts = append(s.gameOpts, game.WithPromptDelay(d))
	}
}

// WithSubmitTimeout bounds each store round trip made by a worker.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}
