// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"

	"github.com/samber/lo"

	"github.com/okian/gliderindex/internal/domain/model"
	"github.com/okian/gliderindex/internal/domain/roster"
)

// IndexListHandler handles index list requests.
type IndexListHandler struct {
	deps IndexListDependencies
}

// NewIndexListHandler creates a new index list handler.
func NewIndexListHandler(deps IndexListDependencies) *IndexListHandler {
	return &IndexListHandler{deps: deps}
}

// HandleGetIndexList handles GET /index-list[?class=FLAG] requests.
func (h *IndexListHandler) HandleGetIndexList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_index_list"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sections, err := h.deps.IndexList(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", upstreamError(op, err))
		return
	}

	class := r.URL.Query().Get("class")
	if class == "" {
		writeJSON(w, http.StatusOK, sections)
		return
	}
	section, ok := lo.Find(sections, func(s roster.Section) bool {
		return s.Flag == model.ClassFlag(class)
	})
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%s: %w: %q", op, ErrUnknownClass, class))
		return
	}
	writeJSON(w, http.StatusOK, section)
}
