package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	service "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/domain/game"
	"github.com/okian/bonk/internal/domain/leaderboard"
	"github.com/okian/bonk/pkg/logger"
	"github.com/okian/bonk/pkg/metrics"
)

// Render event names sent on GET /game/events.
const (
	EventState        = "state"
	EventTargetShow   = "target-show"
	EventTargetHide   = "target-hide"
	EventTargetHit    = "target-hit"
	EventScore        = "score"
	EventTimer        = "timer"
	EventRoundEnd     = "round-end"
	EventStartEnabled = "start-enabled"
	EventTheme        = "theme"
	EventPromptShow   = "prompt-show"
	EventPromptHide   = "prompt-hide"
	EventLeaderboard  = "leaderboard"
	EventView         = "view"
	EventNotice       = "notice"
)

const (
	defaultSubscriberBuffer = 64
	keepAliveInterval       = 15 * time.Second
)

// Event is one render instruction.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type slotData struct {
	Slot  int    `json:"slot"`
	Image string `json:"image,omitempty"`
}

// Broadcaster is a service.Renderer that fans render instructions out to
// every subscribed stream. Sends never block: a subscriber whose buffer is
// full misses the event and resynchronises from the next state snapshot.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	buffer  int
	dropped atomic.Uint64
}

var _ service.Renderer = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster whose subscribers buffer up to
// buffer events. buffer <= 0 uses the default.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Broadcaster{subs: make(map[chan Event]struct{}), buffer: buffer}
}

// Subscribe registers a new stream. The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected streams.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many events were skipped for slow subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Broadcaster) publish(typ string, data any) {
	ev := Event{Type: typ, Data: data}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Broadcaster) Show(slot int, image string) {
	b.publish(EventTargetShow, slotData{Slot: slot, Image: image})
}

func (b *Broadcaster) Hide(slot int) {
	b.publish(EventTargetHide, slotData{Slot: slot})
}

func (b *Broadcaster) FlashHit(slot int) {
	b.publish(EventTargetHit, slotData{Slot: slot})
}

func (b *Broadcaster) SetScore(score int) {
	b.publish(EventScore, map[string]int{"score": score})
}

func (b *Broadcaster) SetTimer(seconds int) {
	b.publish(EventTimer, map[string]int{"seconds": seconds})
}

func (b *Broadcaster) ShowEndMessage(o game.Outcome) {
	b.publish(EventRoundEnd, o)
}

func (b *Broadcaster) SetStartEnabled(enabled bool) {
	b.publish(EventStartEnabled, map[string]bool{"enabled": enabled})
}

func (b *Broadcaster) ApplyTheme(image string) {
	b.publish(EventTheme, map[string]string{"image": image})
}

func (b *Broadcaster) ShowPrompt(score int) {
	b.publish(EventPromptShow, map[string]int{"score": score})
}

func (b *Broadcaster) HidePrompt() {
	b.publish(EventPromptHide, nil)
}

func (b *Broadcaster) ShowLeaderboard(board leaderboard.Board) {
	b.publish(EventLeaderboard, newLeaderboardResponse(board, 0))
}

func (b *Broadcaster) SetView(view service.View) {
	b.publish(EventView, viewResponse{View: view})
}

func (b *Broadcaster) ShowNotice(msg string) {
	b.publish(EventNotice, map[string]string{"message": msg})
}

// StateProvider supplies the snapshot sent when a stream connects.
type StateProvider interface {
	State() service.State
}

// StreamHandler serves the render events as server-sent events.
type StreamHandler struct {
	events *Broadcaster
	state  StateProvider
	log    logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(events *Broadcaster, state StateProvider, log logger.Logger) *StreamHandler {
	return &StreamHandler{events: events, state: state, log: log}
}

// HandleEvents handles GET /game/events. The stream opens with a state
// event and then relays render events until the client disconnects.
func (h *StreamHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, unsubscribe := h.events.Subscribe()
	defer unsubscribe()
	metrics.AddSSEClients(1)
	defer metrics.AddSSEClients(-1)

	if err := writeEvent(w, Event{Type: EventState, Data: h.state.State()}); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.log.Warn(r.Context(), "event stream cannot flush", logger.Error(err))
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w io.Writer, ev Event) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
	return err
}
