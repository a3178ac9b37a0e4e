// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"

	service "github.com/okian/gliderindex/internal/app"
)

// GenerateHandler triggers report runs.
type GenerateHandler struct {
	deps GenerateDependencies
}

// NewGenerateHandler creates a new generate handler.
func NewGenerateHandler(deps GenerateDependencies) *GenerateHandler {
	return &GenerateHandler{deps: deps}
}

// HandleGenerate handles POST /generate?report=index-list|competition|all requests.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.generate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var (
		results []service.Result
		err     error
	)
	switch report := r.URL.Query().Get("report"); report {
	case string(service.ReportIndexList):
		var res service.Result
		res, err = h.deps.GenerateIndexList(r.Context())
		results = []service.Result{res}
	case string(service.ReportCompetition):
		var res service.Result
		res, err = h.deps.GenerateCompetition(r.Context())
		results = []service.Result{res}
	case "", "all":
		results, err = h.deps.GenerateAll(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: unknown report %q", op, ErrBadRequest, report))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", upstreamError(op, err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}
