package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/okian/bonk/internal/adapters/http/api"
	"github.com/okian/bonk/internal/adapters/repository"
	service "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/domain/clock"
	"github.com/okian/bonk/internal/domain/game"
	. "github.com/smartystreets/goconvey/convey"
)

type harness struct {
	clock  *clock.Manual
	svc    *service.Service
	events *api.Broadcaster
	mux    *http.ServeMux
}

func newHarness(t *testing.T, store repository.Store) *harness {
	t.Helper()
	h := &harness{
		clock:  clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		events: api.NewBroadcaster(256),
		mux:    http.NewServeMux(),
	}
	h.svc = service.New(
		service.WithClock(h.clock),
		service.WithRand(rand.New(rand.NewSource(7))),
		service.WithRenderer(h.events),
		service.WithStore(store),
		service.WithWorkerCount(1),
	)
	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	t.Cleanup(h.svc.Stop)
	api.NewServer(h.svc, h.svc, h.events, api.WithMaxLeaderboardLimit(10)).Register(context.Background(), h.mux)
	return h
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

// playRound runs a full round over HTTP, hitting every visible target,
// and waits out the prompt delay.
func (h *harness) playRound() int {
	h.do(http.MethodPost, "/game/start", "")
	for {
		st := h.svc.State().Session
		if st.State != game.StateRunning {
			break
		}
		if st.Occupied >= 0 {
			h.do(http.MethodPost, "/game/hit/"+strconv.Itoa(st.Occupied), "")
		}
		h.clock.Advance(100 * time.Millisecond)
	}
	h.clock.Advance(game.DefaultPromptDelay)
	return h.svc.State().Session.Score
}

type failingStore struct {
	repository.Store
}

func (failingStore) Query(context.Context, string, repository.Filter) ([]repository.Record, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) ReadAll(context.Context, string) ([]repository.Record, error) {
	return nil, errors.New("connection refused")
}

func TestGameRoutes(t *testing.T) {
	Convey("Given an API server over a started service", t, func() {
		h := newHarness(t, repository.NewMemoryStore())

		Convey("When the state is requested before any round", func() {
			w := h.do(http.MethodGet, "/game/state", "")

			Convey("Then the session is idle with six empty slots", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var st struct {
					Session struct {
						Status   string `json:"state"`
						Slots    []bool `json:"slots"`
						Occupied int    `json:"occupied"`
					} `json:"session"`
					View string `json:"view"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
				So(st.Session.Status, ShouldEqual, "idle")
				So(st.Session.Slots, ShouldHaveLength, 6)
				So(st.Session.Occupied, ShouldEqual, -1)
				So(st.View, ShouldEqual, "game")
			})
		})

		Convey("When a round is started", func() {
			w := h.do(http.MethodPost, "/game/start", "")
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then the round runs with the full timer", func() {
				So(h.svc.State().Session.State, ShouldEqual, game.StateRunning)
				So(h.svc.State().Session.TimeRemaining, ShouldEqual, game.DefaultRoundSeconds)
			})

			Convey("And a hit on an empty slot is a miss, not an error", func() {
				w := h.do(http.MethodPost, "/game/hit/0", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"hit":false`)
			})

			Convey("And a hit on a visible target scores", func() {
				h.clock.Advance(game.DefaultMaxSpawnDelay)
				slot := h.svc.State().Session.Occupied
				So(slot, ShouldBeGreaterThanOrEqualTo, 0)

				w := h.do(http.MethodPost, "/game/hit/"+strconv.Itoa(slot), "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"hit":true`)
				So(w.Body.String(), ShouldContainSubstring, `"score":1`)
			})

			Convey("And stopping it ends the round", func() {
				w := h.do(http.MethodPost, "/game/stop", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(h.svc.State().Session.State, ShouldEqual, game.StateIdle)
			})
		})

		Convey("When a hit names a slot outside the board", func() {
			for _, slot := range []string{"6", "-1", "x"} {
				w := h.do(http.MethodPost, "/game/hit/"+slot, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When a command uses the wrong method", func() {
			w := h.do(http.MethodGet, "/game/start", "")

			Convey("Then it is rejected with the allowed method", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
			})
		})

		Convey("When health and stats are requested", func() {
			So(h.do(http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)

			w := h.do(http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			So(w.Body.String(), ShouldContainSubstring, `"streamSubscribers":0`)
		})
	})
}

func TestScoreRoutes(t *testing.T) {
	Convey("Given a finished round", t, func() {
		h := newHarness(t, repository.NewMemoryStore())
		score := h.playRound()

		Convey("When a score is submitted", func() {
			w := h.do(http.MethodPost, "/scores", `{"name":"Alice"}`)

			Convey("Then it is saved and appears on the leaderboard", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"result":"inserted"`)

				w = h.do(http.MethodGet, "/leaderboard", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Entries []struct {
						Rank   int    `json:"rank"`
						Name   string `json:"name"`
						Score  int    `json:"score"`
						Podium bool   `json:"podium"`
					} `json:"entries"`
					Total int `json:"total"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Total, ShouldEqual, 1)
				So(resp.Entries[0].Name, ShouldEqual, "Alice")
				So(resp.Entries[0].Score, ShouldEqual, score)
				So(resp.Entries[0].Rank, ShouldEqual, 1)
				So(resp.Entries[0].Podium, ShouldBeTrue)
			})

			Convey("And the prompt is closed afterwards", func() {
				w := h.do(http.MethodPost, "/scores", `{"name":"Alice"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When the name is blank", func() {
			w := h.do(http.MethodPost, "/scores", `{"name":"  "}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			_, open := h.svc.Prompt()
			So(open, ShouldBeTrue)
		})

		Convey("When the body is not JSON", func() {
			w := h.do(http.MethodPost, "/scores", `name=Alice`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the submission is skipped", func() {
			w := h.do(http.MethodPost, "/scores/skip", "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(h.do(http.MethodPost, "/scores/skip", "").Code, ShouldEqual, http.StatusConflict)
		})
	})

	Convey("Given a store that cannot be reached", t, func() {
		h := newHarness(t, failingStore{Store: repository.NewMemoryStore()})
		h.playRound()

		Convey("Then submission reports the store as unavailable", func() {
			w := h.do(http.MethodPost, "/scores", `{"name":"Bob"}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			_, open := h.svc.Prompt()
			So(open, ShouldBeTrue)
		})

		Convey("Then the leaderboard reports the store as unavailable", func() {
			So(h.do(http.MethodGet, "/leaderboard", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestLeaderboardRoutes(t *testing.T) {
	Convey("Given no stored scores", t, func() {
		h := newHarness(t, repository.NewMemoryStore())

		Convey("When the leaderboard is requested", func() {
			w := h.do(http.MethodGet, "/leaderboard", "")

			Convey("Then it is empty with the invitation message", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"entries":[]`)
				So(w.Body.String(), ShouldContainSubstring, api.EmptyLeaderboardMessage)
			})
		})

		Convey("When the limit is invalid", func() {
			So(h.do(http.MethodGet, "/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodGet, "/leaderboard?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodGet, "/leaderboard?limit=11", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the view is toggled", func() {
			w := h.do(http.MethodPost, "/view/toggle", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"view":"leaderboard"`)

			w = h.do(http.MethodPost, "/view/toggle", "")
			So(w.Body.String(), ShouldContainSubstring, `"view":"game"`)
		})
	})
}

func TestThemeRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		h := newHarness(t, repository.NewMemoryStore())

		Convey("When themes are listed", func() {
			w := h.do(http.MethodGet, "/themes", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "image/Shiba7.jpeg")
		})

		Convey("When a known theme is selected", func() {
			w := h.do(http.MethodPost, "/theme", `{"id":"shiba3"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(h.svc.State().Theme.ID, ShouldEqual, "shiba3")
		})

		Convey("When an unknown theme is selected", func() {
			w := h.do(http.MethodPost, "/theme", `{"id":"corgi"}`)

			Convey("Then it is accepted and flagged unknown", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"known":false`)
			})
		})
	})
}

func TestEventStream(t *testing.T) {
	Convey("Given a client connected to the event stream", t, func() {
		h := newHarness(t, repository.NewMemoryStore())
		srv := httptest.NewServer(h.mux)
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/game/events", nil)
		So(err, ShouldBeNil)
		resp, err := srv.Client().Do(req)
		So(err, ShouldBeNil)
		defer resp.Body.Close()

		So(resp.StatusCode, ShouldEqual, http.StatusOK)
		So(resp.Header.Get("Content-Type"), ShouldEqual, "text/event-stream")

		lines := bufio.NewScanner(resp.Body)
		next := func() string {
			for lines.Scan() {
				if line := lines.Text(); strings.HasPrefix(line, "event: ") {
					return strings.TrimPrefix(line, "event: ")
				}
			}
			return ""
		}

		Convey("Then the first event is the state snapshot", func() {
			So(next(), ShouldEqual, api.EventState)

			Convey("And starting a round streams render instructions", func() {
				// The stream subscribes before sending the snapshot.
				So(h.events.Subscribers(), ShouldEqual, 1)
				h.svc.StartRound()

				seen := map[string]bool{}
				for !seen[api.EventStartEnabled] || !seen[api.EventTimer] {
					ev := next()
					So(ev, ShouldNotBeEmpty)
					seen[ev] = true
				}
				So(seen[api.EventScore], ShouldBeTrue)
			})
		})
	})
}

func TestBroadcaster(t *testing.T) {
	Convey("Given a broadcaster with a tiny buffer", t, func() {
		b := api.NewBroadcaster(1)
		ch, unsubscribe := b.Subscribe()

		Convey("When more events arrive than the subscriber reads", func() {
			b.SetScore(1)
			b.SetScore(2)

			Convey("Then the extra event is dropped instead of blocking", func() {
				So(b.Dropped(), ShouldEqual, 1)
				ev := <-ch
				So(ev.Type, ShouldEqual, api.EventScore)
			})
		})

		Convey("When the subscriber leaves", func() {
			unsubscribe()
			unsubscribe()

			Convey("Then its channel is closed and nothing is sent", func() {
				_, ok := <-ch
				So(ok, ShouldBeFalse)
				So(b.Subscribers(), ShouldEqual, 0)
				b.HidePrompt()
			})
		})
	})
}
