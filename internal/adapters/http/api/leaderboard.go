package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	service "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/domain/leaderboard"
)

// EmptyLeaderboardMessage is shown when nobody has submitted a score.
const EmptyLeaderboardMessage = "No scores yet! Be the first to play!"

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) (leaderboard.Board, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

type leaderboardResponse struct {
	Entries []leaderboard.Row `json:"entries"`
	Total   int               `json:"total"`
	Message string            `json:"message,omitempty"`
}

func newLeaderboardResponse(full leaderboard.Board, limit int) leaderboardResponse {
	resp := leaderboardResponse{
		Entries: slices.Collect(full.Top(limit).All()),
		Total:   full.Len(),
	}
	if resp.Entries == nil {
		resp.Entries = []leaderboard.Row{}
	}
	if full.Empty() {
		resp.Message = EmptyLeaderboardMessage
	}
	return resp
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests. Without
// a limit the first maxLimit rows are returned.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: limit must not exceed %d", ErrBadRequest, h.maxLimit))
			return
		}
		n = v
	}

	board, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLeaderboardResponse(board, n))
}

// ViewDependencies defines the game/leaderboard view toggle.
type ViewDependencies interface {
	ToggleView(ctx context.Context) (service.View, error)
}

// ViewHandler handles view requests.
type ViewHandler struct {
	deps ViewDependencies
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps ViewDependencies) *ViewHandler {
	return &ViewHandler{deps: deps}
}

type viewResponse struct {
	View service.View `json:"view"`
}

// HandleToggle handles POST /view/toggle requests.
func (h *ViewHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	view, err := h.deps.ToggleView(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{View: view})
}
