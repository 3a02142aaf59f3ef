package api

import (
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/domain/game"
)

// GameDependencies defines the round commands.
type GameDependencies interface {
	StartRound() game.Snapshot
	EndRound() game.Snapshot
	Hit(slot int) bool
	SlotCount() int
	State() service.State
}

// GameHandler handles round commands.
type GameHandler struct {
	deps GameDependencies
}

// NewGameHandler creates a new game handler.
func NewGameHandler(deps GameDependencies) *GameHandler {
	return &GameHandler{deps: deps}
}

type hitResponse struct {
	Hit   bool `json:"hit"`
	Score int  `json:"score"`
}

// HandleStart handles POST /game/start requests.
func (h *GameHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.StartRound())
}

// HandleStop handles POST /game/stop requests.
func (h *GameHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.EndRound())
}

// HandleHit handles POST /game/hit/{slot} requests. A miss is not an error.
func (h *GameHandler) HandleHit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil || slot < 0 || slot >= h.deps.SlotCount() {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: slot must be between 0 and %d", ErrBadRequest, h.deps.SlotCount()-1))
		return
	}
	hit := h.deps.Hit(slot)
	writeJSON(w, http.StatusOK, hitResponse{Hit: hit, Score: h.deps.State().Session.Score})
}

// HandleState handles GET /game/state requests.
func (h *GameHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.State())
}
