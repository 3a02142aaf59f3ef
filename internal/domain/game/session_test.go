package game_test

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/okian/bonk/internal/domain/clock"
	"github.com/okian/bonk/internal/domain/game"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu        sync.Mutex
	visible   map[int]bool
	maxShown  int
	shows     int
	flashes   []int
	scores    []int
	timers    []int
	outcomes  []game.Outcome
	startBtn  []bool
	lastImage string
}

func newRecorder() *recorder {
	return &recorder{visible: make(map[int]bool)}
}

func (r *recorder) Show(slot int, image string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible[slot] = true
	r.shows++
	r.lastImage = image
	if len(r.visible) > r.maxShown {
		r.maxShown = len(r.visible)
	}
}

func (r *recorder) Hide(slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.visible, slot)
}

func (r *recorder) FlashHit(slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flashes = append(r.flashes, slot)
}

func (r *recorder) SetScore(score int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores = append(r.scores, score)
}

func (r *recorder) SetTimer(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers = append(r.timers, seconds)
}

func (r *recorder) ShowEndMessage(o game.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) SetStartEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startBtn = append(r.startBtn, enabled)
}

type harness struct {
	clock   *clock.Manual
	render  *recorder
	session *game.Session
	prompts []game.Prompt
}

func newHarness(seed int64) *harness {
	h := &harness{
		clock:  clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		render: newRecorder(),
	}
	h.session = game.NewSession(
		game.WithClock(h.clock),
		game.WithRand(rand.New(rand.NewSource(seed))),
		game.WithRenderer(h.render),
		game.WithImageSource(func() string { return "image/Shiba7.jpeg" }),
		game.WithPromptHandler(func(p game.Prompt) { h.prompts = append(h.prompts, p) }),
	)
	return h
}

// waitForTarget advances in small steps until a slot is occupied.
func (h *harness) waitForTarget() int {
	for range 100 {
		if snap := h.session.Snapshot(); snap.Occupied >= 0 {
			return snap.Occupied
		}
		h.clock.Advance(50 * time.Millisecond)
	}
	return -1
}

func occupiedCount(slots []bool) int {
	n := 0
	for _, v := range slots {
		if v {
			n++
		}
	}
	return n
}

func TestSessionLifecycle(t *testing.T) {
	Convey("Given an idle session on a manual clock", t, func() {
		h := newHarness(1)

		Convey("Then it starts idle with a full timer and no round", func() {
			snap := h.session.Snapshot()
			So(snap.State, ShouldEqual, game.StateIdle)
			So(snap.TimeRemaining, ShouldEqual, game.DefaultRoundSeconds)
			So(snap.Round, ShouldEqual, 0)
			So(snap.Occupied, ShouldEqual, -1)
			So(h.session.SlotCount(), ShouldEqual, game.DefaultSlots)
		})

		Convey("When hits arrive while idle", func() {
			So(h.session.Hit(0), ShouldBeFalse)

			Convey("Then nothing changes", func() {
				So(h.session.Snapshot().Score, ShouldEqual, 0)
			})
		})

		Convey("When a round starts", func() {
			h.session.Start()

			Convey("Then the session runs with reset score and timer", func() {
				snap := h.session.Snapshot()
				So(snap.State, ShouldEqual, game.StateRunning)
				So(snap.Status, ShouldEqual, "running")
				So(snap.Score, ShouldEqual, 0)
				So(snap.TimeRemaining, ShouldEqual, 30)
				So(snap.Round, ShouldEqual, 1)
				So(h.render.startBtn, ShouldResemble, []bool{false})
				So(h.render.timers, ShouldResemble, []int{30})
			})

			Convey("And the countdown decreases once per second", func() {
				h.clock.Advance(3 * time.Second)
				So(h.session.Snapshot().TimeRemaining, ShouldEqual, 27)
				So(h.render.timers, ShouldResemble, []int{30, 29, 28, 27})
			})

			Convey("And a target appears within the maximum spawn delay", func() {
				h.clock.Advance(game.DefaultMaxSpawnDelay)
				So(h.render.shows, ShouldBeGreaterThanOrEqualTo, 1)
				So(h.render.lastImage, ShouldEqual, "image/Shiba7.jpeg")
			})
		})
	})
}

func TestSessionFullRoundWithoutHits(t *testing.T) {
	Convey("Given a round left to run out with zero hits", t, func() {
		h := newHarness(7)
		h.session.Start()
		h.clock.Advance(30 * time.Second)

		Convey("Then the session is idle with score zero and the zero-tier message", func() {
			snap := h.session.Snapshot()
			So(snap.State, ShouldEqual, game.StateIdle)
			So(snap.Score, ShouldEqual, 0)
			So(snap.TimeRemaining, ShouldEqual, 0)
			So(snap.Occupied, ShouldEqual, -1)
			So(snap.LastOutcome, ShouldNotBeNil)
			So(snap.LastOutcome.Tier, ShouldEqual, game.TierZero)
			So(h.render.outcomes, ShouldHaveLength, 1)
			So(h.render.outcomes[0].Message, ShouldEqual, "Ouch! Maybe try opening your eyes next time? 😅")
			So(h.render.startBtn, ShouldResemble, []bool{false, true})
			So(h.session.PendingTimers(), ShouldEqual, 0)
		})

		Convey("Then exactly one prompt follows after the prompt delay", func() {
			So(h.prompts, ShouldBeEmpty)
			h.clock.Advance(game.DefaultPromptDelay)
			So(h.prompts, ShouldResemble, []game.Prompt{{Round: 1, Score: 0}})

			h.clock.Advance(time.Minute)
			So(h.prompts, ShouldHaveLength, 1)
			So(h.clock.Pending(), ShouldEqual, 0)
		})
	})
}

func TestSessionAtMostOneTarget(t *testing.T) {
	Convey("Given several rounds with random timing", t, func() {
		for seed := int64(1); seed <= 5; seed++ {
			h := newHarness(seed)
			h.session.Start()

			for range 700 {
				h.clock.Advance(50 * time.Millisecond)
				So(occupiedCount(h.session.Snapshot().Slots), ShouldBeLessThanOrEqualTo, 1)
			}
			So(h.render.maxShown, ShouldBeLessThanOrEqualTo, 1)
			So(h.render.shows, ShouldBeGreaterThan, 1)
		}
	})
}

func TestSessionHits(t *testing.T) {
	Convey("Given a running round with a target up", t, func() {
		h := newHarness(3)
		h.session.Start()
		slot := h.waitForTarget()
		So(slot, ShouldBeGreaterThanOrEqualTo, 0)

		Convey("When the wrong slot is hit", func() {
			other := (slot + 1) % h.session.SlotCount()

			Convey("Then the score is unchanged", func() {
				So(h.session.Hit(other), ShouldBeFalse)
				So(h.session.Hit(-1), ShouldBeFalse)
				So(h.session.Hit(h.session.SlotCount()), ShouldBeFalse)
				So(h.session.Snapshot().Score, ShouldEqual, 0)
				So(h.session.Snapshot().Occupied, ShouldEqual, slot)
			})
		})

		Convey("When the occupied slot is hit", func() {
			So(h.session.Hit(slot), ShouldBeTrue)

			Convey("Then the score increases by one and the slot is vacated", func() {
				snap := h.session.Snapshot()
				So(snap.Score, ShouldEqual, 1)
				So(snap.Occupied, ShouldEqual, -1)
				So(h.render.flashes, ShouldResemble, []int{slot})
				So(h.render.visible, ShouldBeEmpty)
			})

			Convey("And a second hit on the same slot does not score", func() {
				So(h.session.Hit(slot), ShouldBeFalse)
				So(h.session.Snapshot().Score, ShouldEqual, 1)
			})
		})

		Convey("When every target is hit across the round", func() {
			prev := 0
			for h.session.Snapshot().State == game.StateRunning {
				if s := h.session.Snapshot().Occupied; s >= 0 {
					h.session.Hit(s)
				}
				score := h.session.Snapshot().Score
				So(score, ShouldBeGreaterThanOrEqualTo, prev)
				So(score-prev, ShouldBeLessThanOrEqualTo, 1)
				prev = score
				h.clock.Advance(100 * time.Millisecond)
			}

			Convey("Then the final score matches the outcome shown", func() {
				So(prev, ShouldBeGreaterThan, 0)
				So(h.render.outcomes, ShouldHaveLength, 1)
				So(h.render.outcomes[0].Score, ShouldEqual, prev)
				So(h.render.outcomes[0].Tier, ShouldEqual, game.TierFor(prev))
			})
		})
	})
}

func TestSessionTargetExpiry(t *testing.T) {
	Convey("Given a target that is never hit", t, func() {
		h := newHarness(11)
		h.session = game.NewSession(
			game.WithClock(h.clock),
			game.WithRand(rand.New(rand.NewSource(11))),
			game.WithRenderer(h.render),
			game.WithSpawnDelay(time.Second, time.Second),
			game.WithTargetWindow(500*time.Millisecond),
		)
		h.session.Start()

		Convey("Then it is vacated once the target window passes", func() {
			h.clock.Advance(time.Second)
			So(h.session.Snapshot().Occupied, ShouldBeGreaterThanOrEqualTo, 0)
			h.clock.Advance(500 * time.Millisecond)
			So(h.session.Snapshot().Occupied, ShouldEqual, -1)
			So(h.render.visible, ShouldBeEmpty)
		})
	})
}

func TestSessionEnd(t *testing.T) {
	Convey("Given a running round", t, func() {
		h := newHarness(5)
		h.session.Start()
		h.clock.Advance(4 * time.Second)

		Convey("When End is called twice", func() {
			h.session.End()
			first := h.session.Snapshot()
			h.session.End()
			second := h.session.Snapshot()

			Convey("Then the state is the same and no round timers remain", func() {
				So(second, ShouldResemble, first)
				So(second.State, ShouldEqual, game.StateIdle)
				So(second.Occupied, ShouldEqual, -1)
				So(h.session.PendingTimers(), ShouldEqual, 0)
				So(h.render.outcomes, ShouldHaveLength, 1)
			})

			Convey("And only the single prompt timer is left", func() {
				So(h.clock.Pending(), ShouldEqual, 1)
				h.clock.Advance(game.DefaultPromptDelay)
				So(h.prompts, ShouldHaveLength, 1)
				So(h.clock.Pending(), ShouldEqual, 0)
			})

			Convey("And the clock no longer changes anything", func() {
				h.clock.Advance(time.Minute)
				snap := h.session.Snapshot()
				So(snap.TimeRemaining, ShouldEqual, first.TimeRemaining)
				So(snap.Occupied, ShouldEqual, -1)
			})
		})

		Convey("When a new round starts before the prompt fires", func() {
			h.session.End()
			h.clock.Advance(time.Second)
			h.session.Start()
			h.clock.Advance(5 * time.Second)

			Convey("Then the previous round's prompt is cancelled", func() {
				So(h.prompts, ShouldBeEmpty)
				So(h.session.Snapshot().Round, ShouldEqual, 2)
			})
		})

		Convey("When Start is called while running", func() {
			h.session.Start()

			Convey("Then the round restarts cleanly and old timers are gone", func() {
				snap := h.session.Snapshot()
				So(snap.Round, ShouldEqual, 2)
				So(snap.TimeRemaining, ShouldEqual, 30)
				So(snap.Score, ShouldEqual, 0)
				So(h.session.PendingTimers(), ShouldEqual, 2)

				h.clock.Advance(time.Second)
				So(h.session.Snapshot().TimeRemaining, ShouldEqual, 29)
			})
		})
	})
}

func TestSessionZeroMinimumSpawnDelay(t *testing.T) {
	Convey("Given a session whose spawn delay range starts at zero", t, func() {
		c := clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		s := game.NewSession(
			game.WithClock(c),
			game.WithRand(rand.New(rand.NewSource(3))),
			game.WithSpawnDelay(0, 100*time.Millisecond),
		)

		Convey("Then every round shows a target before the range's upper bound", func() {
			for range 20 {
				s.Start()
				c.Advance(100 * time.Millisecond)
				So(s.Snapshot().Occupied, ShouldBeGreaterThanOrEqualTo, 0)
			}
		})
	})
}

// heldClock never cancels: Stop reports false and the callback stays
// available to run later, as a runtime timer that already fired would.
type heldClock struct {
	mu      sync.Mutex
	pending []func()
}

type heldTimer struct{}

func (heldTimer) Stop() bool { return false }

func (c *heldClock) Now() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

func (c *heldClock) AfterFunc(_ time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, f)
	return heldTimer{}
}

// take returns the callbacks scheduled so far and forgets them.
func (c *heldClock) take() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fs := c.pending
	c.pending = nil
	return fs
}

func runAll(fs []func()) {
	for _, f := range fs {
		f()
	}
}

func TestSessionLateCallbacks(t *testing.T) {
	Convey("Given a round whose timers cannot be cancelled", t, func() {
		c := &heldClock{}
		render := newRecorder()
		var prompts []game.Prompt
		s := game.NewSession(
			game.WithClock(c),
			game.WithRand(rand.New(rand.NewSource(9))),
			game.WithRenderer(render),
			game.WithPromptHandler(func(p game.Prompt) { prompts = append(prompts, p) }),
		)
		s.Start()
		// First countdown tick and first spawn: a target goes up.
		runAll(c.take())
		So(s.Snapshot().Occupied, ShouldBeGreaterThanOrEqualTo, 0)
		So(s.Snapshot().TimeRemaining, ShouldEqual, 29)
		// Next tick, next spawn and the target's expiry.
		late := c.take()
		So(late, ShouldHaveLength, 3)
		shows := render.shows

		Convey("When they fire after the round ended", func() {
			s.End()
			prompt := c.take()
			runAll(late)

			Convey("Then the idle session is untouched", func() {
				snap := s.Snapshot()
				So(snap.State, ShouldEqual, game.StateIdle)
				So(snap.Occupied, ShouldEqual, -1)
				So(snap.TimeRemaining, ShouldEqual, 29)
				So(render.shows, ShouldEqual, shows)
				So(c.take(), ShouldBeEmpty)
			})

			Convey("And the round's own prompt still opens once", func() {
				runAll(prompt)
				So(prompts, ShouldResemble, []game.Prompt{{Round: 1, Score: 0}})
			})
		})

		Convey("When they fire after a restart", func() {
			s.Start()
			c.take()
			runAll(late)

			Convey("Then the new round is untouched", func() {
				snap := s.Snapshot()
				So(snap.Round, ShouldEqual, 2)
				So(snap.State, ShouldEqual, game.StateRunning)
				So(snap.TimeRemaining, ShouldEqual, 30)
				So(snap.Occupied, ShouldEqual, -1)
				So(render.shows, ShouldEqual, shows)
			})
		})

		Convey("When the old prompt fires after the next round started", func() {
			s.End()
			prompt := c.take()
			s.Start()
			runAll(prompt)

			Convey("Then it is dropped", func() {
				So(prompts, ShouldBeEmpty)
				So(s.Snapshot().Round, ShouldEqual, 2)
			})
		})
	})
}
