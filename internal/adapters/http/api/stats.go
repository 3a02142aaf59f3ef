package api

import (
	"maps"
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves the service statistics plus the event stream counters.
type StatsHandler struct {
	statsProvider StatsProvider
	events        *Broadcaster
}

// NewStatsHandler creates a new stats handler. events may be nil.
func NewStatsHandler(statsProvider StatsProvider, events *Broadcaster) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, events: events}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	stats := maps.Clone(h.statsProvider.GetStats())
	if stats == nil {
		stats = make(map[string]any)
	}
	if h.events != nil {
		stats["streamSubscribers"] = h.events.Subscribers()
		stats["streamDropped"] = h.events.Dropped()
	}
	writeJSON(w, http.StatusOK, stats)
}
