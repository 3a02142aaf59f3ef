// Package game implements the round state machine: a 30 second countdown,
// a single target hopping between slots, hits and the end-of-round outcome.
package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/bonk/internal/domain/clock"
	"github.com/okian/bonk/pkg/logger"
	"github.com/okian/bonk/pkg/metrics"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// End reasons reported to metrics and logs.
const (
	ReasonTimeout = "timeout"
	ReasonStopped = "stopped"
)

// Defaults used when no option overrides them.
const (
	DefaultSlots         = 6
	DefaultRoundSeconds  = 30
	DefaultMinSpawnDelay = 500 * time.Millisecond
	DefaultMaxSpawnDelay = 2000 * time.Millisecond
	DefaultTargetWindow  = 1500 * time.Millisecond
	DefaultPromptDelay   = 2 * time.Second
)

// Prompt asks the player to submit the score of a finished round.
type Prompt struct {
	Round uint64 `json:"round"`
	Score int    `json:"score"`
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	State         State    `json:"-"`
	Status        string   `json:"state"`
	Round         uint64   `json:"round"`
	Score         int      `json:"score"`
	TimeRemaining int      `json:"time_remaining"`
	Slots         []bool   `json:"slots"`
	Occupied      int      `json:"occupied"`
	LastOutcome   *Outcome `json:"last_outcome,omitempty"`
}

// Session owns one player's rounds. Every transition, including timer
// callbacks, runs under mu; callbacks capture the round (and for expiry
// the occupation sequence) they were scheduled for and drop themselves
// when it no longer matches.
type Session struct {
	mu sync.Mutex

	clock    clock.Clock
	rng      *rand.Rand
	renderer Renderer
	log      logger.Logger
	image    func() string
	onPrompt func(Prompt)

	roundSeconds  int
	minSpawnDelay time.Duration
	maxSpawnDelay time.Duration
	targetWindow  time.Duration
	promptDelay   time.Duration

	board         *Board
	active        bool
	round         uint64
	score         int
	timeRemaining int
	lastOutcome   *Outcome

	countdown clock.Timer
	spawn     clock.Timer
	expire    clock.Timer
	prompt    clock.Timer
}

// NewSession creates an idle session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		clock:         clock.NewReal(),
		renderer:      NopRenderer{},
		log:           logger.Nop(),
		image:         func() string { return "" },
		onPrompt:      func(Prompt) {},
		roundSeconds:  DefaultRoundSeconds,
		minSpawnDelay: DefaultMinSpawnDelay,
		maxSpawnDelay: DefaultMaxSpawnDelay,
		targetWindow:  DefaultTargetWindow,
		promptDelay:   DefaultPromptDelay,
		board:         NewBoard(DefaultSlots),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.clock.Now().UnixNano())) //nolint:gosec // gameplay randomness
	}
	if s.maxSpawnDelay < s.minSpawnDelay {
		s.maxSpawnDelay = s.minSpawnDelay
	}
	s.timeRemaining = s.roundSeconds
	return s
}

// Start begins a new round from any state. A running round is abandoned:
// its timers are cancelled and any callback already in flight is dropped
// by the round check.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	restart := s.active
	s.stopTimersLocked()
	stopTimer(&s.prompt)

	s.round++
	s.active = true
	s.score = 0
	s.timeRemaining = s.roundSeconds
	s.lastOutcome = nil
	s.board.Vacate()
	for i := range s.board.Size() {
		s.renderer.Hide(i)
	}
	s.renderer.SetStartEnabled(false)
	s.renderer.SetScore(0)
	s.renderer.SetTimer(s.timeRemaining)

	round := s.round
	s.countdown = s.clock.AfterFunc(time.Second, func() { s.tick(round) })
	s.scheduleNextLocked(round)

	metrics.RecordSessionStarted(restart)
	s.log.Info(context.Background(), "round started",
		logger.Any("round", round),
		logger.Bool("restart", restart),
	)
}

// Hit registers a hit on slot. It reports whether the hit scored; hits
// while idle, out of range or on an empty slot change nothing.
func (s *Session) Hit(slot int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !s.board.Valid(slot) {
		return false
	}
	occupied, ok := s.board.Occupied()
	if !ok || occupied != slot {
		return false
	}

	s.score++
	s.board.Vacate()
	stopTimer(&s.expire)
	s.renderer.FlashHit(slot)
	s.renderer.Hide(slot)
	s.renderer.SetScore(s.score)
	metrics.RecordTargetHit()
	return true
}

// End finishes the running round. Calling it while idle does nothing.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked(ReasonStopped)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := StateIdle
	if s.active {
		state = StateRunning
	}
	occupied, ok := s.board.Occupied()
	if !ok {
		occupied = -1
	}
	var last *Outcome
	if s.lastOutcome != nil {
		o := *s.lastOutcome
		last = &o
	}
	return Snapshot{
		State:         state,
		Status:        state.String(),
		Round:         s.round,
		Score:         s.score,
		TimeRemaining: s.timeRemaining,
		Slots:         s.board.Slots(),
		Occupied:      occupied,
		LastOutcome:   last,
	}
}

// SlotCount returns the number of slots on the board.
func (s *Session) SlotCount() int {
	return s.board.Size()
}

// PendingTimers counts the round timers (countdown, spawn, expiry) that
// are still scheduled. The post-round prompt timer is not included.
func (s *Session) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range []clock.Timer{s.countdown, s.spawn, s.expire} {
		if t != nil {
			n++
		}
	}
	return n
}

func (s *Session) tick(round uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(round) {
		s.stale("countdown", round)
		return
	}
	s.countdown = nil
	s.timeRemaining--
	s.renderer.SetTimer(s.timeRemaining)
	if s.timeRemaining <= 0 {
		s.endLocked(ReasonTimeout)
		return
	}
	s.countdown = s.clock.AfterFunc(time.Second, func() { s.tick(round) })
}

func (s *Session) scheduleNextLocked(round uint64) {
	if !s.current(round) {
		return
	}
	delay := s.minSpawnDelay
	if span := s.maxSpawnDelay - s.minSpawnDelay; span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span)))
	}
	s.spawn = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.current(round) {
			s.stale("spawn", round)
			return
		}
		s.spawn = nil
		s.activateRandomSlotLocked(round)
		s.scheduleNextLocked(round)
	})
}

func (s *Session) activateRandomSlotLocked(round uint64) {
	if prev, ok := s.board.Vacate(); ok {
		s.renderer.Hide(prev)
	}
	stopTimer(&s.expire)

	slot := s.rng.Intn(s.board.Size())
	seq := s.board.Occupy(slot)
	s.renderer.Show(slot, s.image())
	metrics.RecordTargetSpawned()

	s.expire = s.clock.AfterFunc(s.targetWindow, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.current(round) || !s.board.Current(seq) {
			s.stale("expire", round)
			return
		}
		s.expire = nil
		s.board.Vacate()
		s.renderer.Hide(slot)
		metrics.RecordTargetExpired()
	})
}

func (s *Session) endLocked(reason string) {
	if !s.active {
		return
	}
	s.stopTimersLocked()
	if slot, ok := s.board.Vacate(); ok {
		s.renderer.Hide(slot)
	}
	s.active = false

	outcome := OutcomeFor(s.score)
	s.lastOutcome = &outcome
	s.renderer.ShowEndMessage(outcome)
	s.renderer.SetStartEnabled(true)

	round, score := s.round, s.score
	stopTimer(&s.prompt)
	s.prompt = s.clock.AfterFunc(s.promptDelay, func() { s.firePrompt(round, score) })

	metrics.RecordSessionEnded(reason, score)
	s.log.Info(context.Background(), "round ended",
		logger.Any("round", round),
		logger.Int("score", score),
		logger.String("reason", reason),
		logger.String("tier", outcome.Label),
	)
}

// firePrompt invokes the prompt handler outside the session lock so the
// handler may call back into the Session.
func (s *Session) firePrompt(round uint64, score int) {
	s.mu.Lock()
	if s.round != round || s.active {
		s.mu.Unlock()
		s.stale("prompt", round)
		return
	}
	s.prompt = nil
	handler := s.onPrompt
	s.mu.Unlock()

	handler(Prompt{Round: round, Score: score})
}

func (s *Session) current(round uint64) bool {
	return s.active && s.round == round
}

func (s *Session) stale(kind string, round uint64) {
	metrics.RecordStaleCallback(kind)
	s.log.Debug(context.Background(), "stale callback dropped",
		logger.String("kind", kind),
		logger.Any("round", round),
	)
}

func (s *Session) stopTimersLocked() {
	stopTimer(&s.countdown)
	stopTimer(&s.spawn)
	stopTimer(&s.expire)
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
