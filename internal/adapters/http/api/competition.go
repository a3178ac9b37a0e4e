// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"

	"github.com/samber/lo"

	"github.com/okian/gliderindex/internal/domain/competition"
)

// CompetitionHandler handles competition class requests.
type CompetitionHandler struct {
	deps CompetitionDependencies
}

// NewCompetitionHandler creates a new competition handler.
func NewCompetitionHandler(deps CompetitionDependencies) *CompetitionHandler {
	return &CompetitionHandler{deps: deps}
}

// HandleGetCompetition handles GET /competition[?title=TITLE] requests.
func (h *CompetitionHandler) HandleGetCompetition(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_competition"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	classes, err := h.deps.Competition(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", upstreamError(op, err))
		return
	}

	title := r.URL.Query().Get("title")
	if title == "" {
		writeJSON(w, http.StatusOK, classes)
		return
	}
	class, ok := lo.Find(classes, func(c competition.Class) bool { return c.Title == title })
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%s: %w: %q", op, ErrUnknownTitle, title))
		return
	}
	writeJSON(w, http.StatusOK, class)
}
