package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/bonk/internal/domain/scores"
	"github.com/okian/bonk/pkg/logger"
)

// ScoreDependencies defines score submission.
type ScoreDependencies interface {
	SubmitScore(ctx context.Context, name string) (scores.Result, error)
	SkipSubmission() error
}

// ScoreHandler handles submission requests.
type ScoreHandler struct {
	deps ScoreDependencies
	log  logger.Logger
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies, log logger.Logger) *ScoreHandler {
	return &ScoreHandler{deps: deps, log: log}
}

type submitRequest struct {
	Name string `json:"name"`
}

type submitResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

// HandleSubmit handles POST /scores requests for the prompted round.
func (h *ScoreHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	res, err := h.deps.SubmitScore(r.Context(), req.Name)
	if err != nil {
		h.log.Debug(r.Context(), "score submission refused", logger.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Status: "saved", Result: res.String()})
}

// HandleSkip handles POST /scores/skip requests.
func (h *ScoreHandler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if err := h.deps.SkipSubmission(); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
