// Package api exposes the game service over HTTP: round commands, the
// render event stream, themes, score submission and the leaderboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/bonk/internal/adapters/mq/queue"
	service "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/domain/scores"
	"github.com/okian/bonk/pkg/logger"
)

const defaultMaxLeaderboardLimit = 100

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	GameDependencies
	ThemeDependencies
	ScoreDependencies
	LeaderboardDependencies
	ViewDependencies
}

// Server wires HTTP routes for the game API.
type Server struct {
	gameHandler        *GameHandler
	themeHandler       *ThemeHandler
	scoreHandler       *ScoreHandler
	leaderboardHandler *LeaderboardHandler
	viewHandler        *ViewHandler
	streamHandler      *StreamHandler
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	maxLimit int
	log      logger.Logger
}

// WithMaxLeaderboardLimit caps the limit accepted by GET /leaderboard.
func WithMaxLeaderboardLimit(n int) ServerOption {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(o *serverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewServer creates the API server. events is the broadcaster the service
// renders into; it backs GET /game/events.
func NewServer(deps Dependencies, stats StatsProvider, events *Broadcaster, opts ...ServerOption) *Server {
	o := serverOptions{maxLimit: defaultMaxLeaderboardLimit, log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		gameHandler:        NewGameHandler(deps),
		themeHandler:       NewThemeHandler(deps),
		scoreHandler:       NewScoreHandler(deps, o.log),
		leaderboardHandler: NewLeaderboardHandler(deps, o.maxLimit),
		viewHandler:        NewViewHandler(deps),
		streamHandler:      NewStreamHandler(events, deps, o.log),
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(stats, events),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/game/start", MetricsMiddleware(s.gameHandler.HandleStart, "game_start"))
	mux.HandleFunc("/game/stop", MetricsMiddleware(s.gameHandler.HandleStop, "game_stop"))
	mux.HandleFunc("/game/hit/{slot}", MetricsMiddleware(s.gameHandler.HandleHit, "game_hit"))
	mux.HandleFunc("/game/state", MetricsMiddleware(s.gameHandler.HandleState, "game_state"))
	// Long-lived; recorded on disconnect.
	mux.HandleFunc("/game/events", MetricsMiddleware(s.streamHandler.HandleEvents, "game_events"))

	mux.HandleFunc("/themes", MetricsMiddleware(s.themeHandler.HandleList, "themes"))
	mux.HandleFunc("/theme", MetricsMiddleware(s.themeHandler.HandleSelect, "theme"))

	mux.HandleFunc("/scores", MetricsMiddleware(s.scoreHandler.HandleSubmit, "scores"))
	mux.HandleFunc("/scores/skip", MetricsMiddleware(s.scoreHandler.HandleSkip, "scores_skip"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/view/toggle", MetricsMiddleware(s.viewHandler.HandleToggle, "view_toggle"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// allowMethod rejects requests whose method is not m.
func allowMethod(w http.ResponseWriter, r *http.Request, m string) bool {
	if r.Method == m {
		return true
	}
	w.Header().Set("Allow", m)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", fmt.Errorf("%w: use %s", ErrBadRequest, m))
	return false
}

// writeServiceError translates service and domain errors into HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scores.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, service.ErrNoPrompt):
		writeError(w, http.StatusConflict, "no_prompt", err)
	case errors.Is(err, service.ErrSubmissionInFlight):
		writeError(w, http.StatusConflict, "in_flight", err)
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%w: %w", ErrBackpressure, err))
	case errors.Is(err, scores.ErrStore),
		errors.Is(err, queue.ErrStopped),
		errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// Compile-time check that the service satisfies the handler dependencies.
var _ Dependencies = (*service.Service)(nil)
