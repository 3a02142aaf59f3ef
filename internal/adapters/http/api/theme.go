package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/bonk/internal/domain/theme"
)

// ThemeDependencies defines theme listing and selection.
type ThemeDependencies interface {
	Themes() []theme.Theme
	SelectTheme(id string) theme.Theme
}

// ThemeHandler handles theme requests.
type ThemeHandler struct {
	deps ThemeDependencies
}

// NewThemeHandler creates a new theme handler.
func NewThemeHandler(deps ThemeDependencies) *ThemeHandler {
	return &ThemeHandler{deps: deps}
}

type themeRequest struct {
	ID string `json:"id"`
}

// HandleList handles GET /themes requests.
func (h *ThemeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Themes())
}

// HandleSelect handles POST /theme requests. Unknown ids are accepted and
// reported with known=false.
func (h *ThemeHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.SelectTheme(req.ID))
}
