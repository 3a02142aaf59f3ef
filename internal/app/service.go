// Package service wires the game session, theme selection, score
// submission pipeline and leaderboard into one command interface used by
// the HTTP and terminal front ends.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bonk/internal/adapters/mq/queue"
	"github.com/okian/bonk/internal/adapters/mq/worker"
	"github.com/okian/bonk/internal/adapters/repository"
	"github.com/okian/bonk/internal/domain/clock"
	"github.com/okian/bonk/internal/domain/dedupe"
	"github.com/okian/bonk/internal/domain/game"
	"github.com/okian/bonk/internal/domain/leaderboard"
	"github.com/okian/bonk/internal/domain/model"
	"github.com/okian/bonk/internal/domain/scores"
	"github.com/okian/bonk/internal/domain/theme"
	"github.com/okian/bonk/pkg/logger"
	"github.com/okian/bonk/pkg/metrics"
)

// Player-facing notices.
const (
	NoticeNameRequired = "Please enter your name!"
	NoticeScoreSaved   = "Score saved successfully! 🎉"
	NoticeSaveFailed   = "Sorry, there was an error saving your score. Please try again."
	NoticeLoadFailed   = "Error loading leaderboard. Please try again."
)

const (
	defaultQueueSize     = 64
	defaultDedupeSize    = 1024
	defaultSubmitTimeout = 10 * time.Second
	shutdownTimeout      = 10 * time.Second
)

// State is the full read-only view of the service for clients.
type State struct {
	Session game.Snapshot `json:"session"`
	Theme   theme.Theme   `json:"theme"`
	View    View          `json:"view"`
	Prompt  *game.Prompt  `json:"prompt,omitempty"`
}

// Service owns one player's session and everything around it.
// Lock order is Service.mu before the session lock; the session never
// calls into the Service while holding its own lock.
type Service struct {
	mu sync.RWMutex

	// Core components
	session  *game.Session
	themes   *theme.Selector
	store    repository.Store
	scores   *scores.Adapter
	guard    dedupe.Guard
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	renderer Renderer
	clock    clock.Clock

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	collection    string
	initialTheme  string
	submitTimeout time.Duration
	gameOpts      []game.Option

	// State
	started bool
	prompt  *game.Prompt
	view    View
	waiters map[string]chan worker.Completion

	logger logger.Logger
}

// New constructs a Service. The session is usable immediately; score
// submission and the leaderboard need Start.
func New(opts ...Option) *Service {
	s := &Service{
		renderer:      NopRenderer{},
		clock:         clock.NewReal(),
		workerCount:   max(2, runtime.NumCPU()/2),
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		collection:    scores.DefaultCollection,
		submitTimeout: defaultSubmitTimeout,
		view:          ViewGame,
		waiters:       make(map[string]chan worker.Completion),
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.themes = theme.NewSelector(
		theme.WithInitial(s.initialTheme),
		theme.WithLogger(s.logger.Named("theme")),
	)

	// Caller options come after the wiring so tests can still override the clock and rand.
	gameOpts := append([]game.Option{
		game.WithRenderer(s.renderer),
		game.WithLogger(s.logger.Named("session")),
		game.WithImageSource(s.themes.Image),
		game.WithPromptHandler(s.openPrompt),
	}, s.gameOpts...)
	s.session = game.NewSession(gameOpts...)
	return s
}

// Start starts the submission pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting game service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory score store")
	}
	s.scores = scores.NewAdapter(s.store,
		scores.WithCollection(s.collection),
		scores.WithLogger(s.logger.Named("scores")),
	)
	s.guard = dedupe.NewInMemoryGuard(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.scores, s.complete,
		worker.WithLogger(s.logger),
		worker.WithJobTimeout(s.submitTimeout),
	)
	// Workers outlive the request that started the service; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.renderer.ApplyTheme(s.themes.Image())
	s.renderer.SetView(s.view)
	s.renderer.SetStartEnabled(true)

	s.started = true
	s.logger.Info(ctx, "game service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("theme", s.themes.Current().ID),
	)
	return nil
}

// Stop ends any running round, drains pending submissions and closes the store.
func (s *Service) Stop() {
	s.session.End()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, store := s.pool, s.store
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping game service...")

	// Completions call back into the Service, so the pool drains without s.mu held.
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	if err := store.Close(); err != nil {
		s.logger.Error(ctx, "closing score store failed", logger.Error(err))
	}
	s.logger.Info(ctx, "game service stopped")
}

// StartRound starts a new round, abandoning any running one and closing
// an open submission prompt.
func (s *Service) StartRound() game.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closePromptLocked()
	if s.view != ViewGame {
		s.view = ViewGame
		s.renderer.SetView(s.view)
	}
	s.session.Start()
	return s.session.Snapshot()
}

// EndRound ends the running round early. It does nothing while idle.
func (s *Service) EndRound() game.Snapshot {
	s.session.End()
	return s.session.Snapshot()
}

// Hit forwards a hit on slot to the session and reports whether it scored.
func (s *Service) Hit(slot int) bool {
	return s.session.Hit(slot)
}

// SlotCount returns the number of target slots.
func (s *Service) SlotCount() int {
	return s.session.SlotCount()
}

// SelectTheme switches the target image immediately.
func (s *Service) SelectTheme(id string) theme.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.themes.Select(id)
	s.renderer.ApplyTheme(t.ImageRef)
	return t
}

// CycleTheme selects the next bundled theme.
func (s *Service) CycleTheme() theme.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.themes.Next()
	s.renderer.ApplyTheme(t.ImageRef)
	return t
}

// Themes lists the bundled themes.
func (s *Service) Themes() []theme.Theme {
	return theme.Known()
}

// openPrompt is the session's prompt handler. It drops prompts for a
// round that has since been replaced.
func (s *Service) openPrompt(p game.Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.session.Snapshot()
	if snap.Round != p.Round || snap.State == game.StateRunning {
		return
	}
	s.prompt = &p
	s.renderer.ShowPrompt(p.Score)
	s.logger.Debug(context.Background(), "submission prompt opened",
		logger.Any("round", p.Round),
		logger.Int("score", p.Score),
	)
}

func (s *Service) closePromptLocked() {
	if s.prompt == nil {
		return
	}
	s.prompt = nil
	s.renderer.HidePrompt()
}

// Prompt returns the open submission prompt, if any.
func (s *Service) Prompt() (game.Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.prompt == nil {
		return game.Prompt{}, false
	}
	return *s.prompt, true
}

// SkipSubmission closes the open prompt without storing anything.
func (s *Service) SkipSubmission() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prompt == nil {
		return ErrNoPrompt
	}
	s.closePromptLocked()
	return nil
}

// SubmitScore stores the score of the prompted round under name and
// waits for the outcome. A success closes the prompt; any failure leaves
// it open so the player can retry.
func (s *Service) SubmitScore(ctx context.Context, name string) (scores.Result, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return 0, ErrNotStarted
	}
	if s.prompt == nil {
		s.mu.Unlock()
		return 0, ErrNoPrompt
	}
	if strings.TrimSpace(name) == "" {
		s.renderer.ShowNotice(NoticeNameRequired)
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: name is required", scores.ErrValidation)
	}

	p := *s.prompt
	key := model.RoundKey(p.Round)
	if !s.guard.Acquire(ctx, key) {
		s.mu.Unlock()
		return 0, ErrSubmissionInFlight
	}

	sub := model.Submission{
		ID:         uuid.NewString(),
		Round:      p.Round,
		Name:       name,
		Score:      p.Score,
		EnqueuedAt: s.clock.Now(),
	}
	done := make(chan worker.Completion, 1)
	s.waiters[sub.ID] = done
	q := s.queue
	s.mu.Unlock()

	if err := q.Enqueue(ctx, sub); err != nil {
		s.mu.Lock()
		delete(s.waiters, sub.ID)
		s.mu.Unlock()
		s.guard.Release(ctx, key)
		s.logger.Warn(ctx, "submission rejected", logger.String("submission_id", sub.ID), logger.Error(err))
		return 0, fmt.Errorf("enqueue submission: %w", err)
	}

	select {
	case c := <-done:
		return c.Result, c.Err
	case <-ctx.Done():
		// The worker still completes it and updates the prompt.
		return 0, fmt.Errorf("waiting for submission: %w", ctx.Err())
	}
}

// complete resumes the service once a worker has stored (or failed to
// store) a submission.
func (s *Service) complete(ctx context.Context, c worker.Completion) {
	s.mu.Lock()
	done := s.waiters[c.Submission.ID]
	delete(s.waiters, c.Submission.ID)

	switch {
	case c.Err != nil:
		s.renderer.ShowNotice(NoticeSaveFailed)
	case s.prompt != nil && s.prompt.Round == c.Submission.Round:
		s.closePromptLocked()
		s.renderer.ShowNotice(NoticeScoreSaved)
	}
	s.mu.Unlock()

	s.guard.Release(ctx, c.Submission.RoundKey())
	if done != nil {
		done <- c
	}
}

// Leaderboard reads every stored score and ranks it.
func (s *Service) Leaderboard(ctx context.Context) (leaderboard.Board, error) {
	s.mu.RLock()
	adapter := s.scores
	started := s.started
	s.mu.RUnlock()
	if !started {
		return leaderboard.Board{}, ErrNotStarted
	}

	entries, err := adapter.FetchAll(ctx)
	if err != nil {
		return leaderboard.Board{}, err
	}
	return leaderboard.Present(entries), nil
}

// ToggleView switches between the game and the leaderboard. Switching to
// the leaderboard loads it; a load failure is shown as a notice and
// returned, and the view still changes.
func (s *Service) ToggleView(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.view == ViewGame {
		s.view = ViewLeaderboard
	} else {
		s.view = ViewGame
	}
	view := s.view
	s.renderer.SetView(view)
	s.mu.Unlock()

	if view != ViewLeaderboard {
		return view, nil
	}
	board, err := s.Leaderboard(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewLeaderboard {
		return s.view, err
	}
	if err != nil {
		if !errors.Is(err, ErrNotStarted) {
			s.logger.Error(ctx, "loading leaderboard failed", logger.Error(err))
		}
		s.renderer.ShowNotice(NoticeLoadFailed)
		return view, err
	}
	s.renderer.ShowLeaderboard(board)
	return view, nil
}

// View returns the current view.
func (s *Service) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// State returns a snapshot of everything a client needs to redraw.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		Session: s.session.Snapshot(),
		Theme:   s.themes.Current(),
		View:    s.view,
	}
	if s.prompt != nil {
		p := *s.prompt
		st.Prompt = &p
	}
	return st
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.session.Snapshot()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"round":       snap.Round,
		"state":       snap.Status,
		"view":        string(s.view),
		"theme":       s.themes.Current().ID,
	}
	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["inFlight"] = s.guard.Size()
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
