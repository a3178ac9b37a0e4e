// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	service "github.com/okian/gliderindex/internal/app"
	"github.com/okian/gliderindex/internal/domain/competition"
	"github.com/okian/gliderindex/internal/domain/roster"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	IndexListDependencies
	CompetitionDependencies
	GenerateDependencies
}

// IndexListDependencies exposes the grouped index list.
type IndexListDependencies interface {
	IndexList(ctx context.Context) ([]roster.Section, error)
}

// CompetitionDependencies exposes the competition classes.
type CompetitionDependencies interface {
	Competition(ctx context.Context) ([]competition.Class, error)
}

// GenerateDependencies writes report documents on demand.
type GenerateDependencies interface {
	GenerateIndexList(ctx context.Context) (service.Result, error)
	GenerateCompetition(ctx context.Context) (service.Result, error)
	GenerateAll(ctx context.Context) ([]service.Result, error)
}

// Server wires HTTP routes for the report API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	indexListHandler   *IndexListHandler
	competitionHandler *CompetitionHandler
	generateHandler    *GenerateHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		indexListHandler:   NewIndexListHandler(deps),
		competitionHandler: NewCompetitionHandler(deps),
		generateHandler:    NewGenerateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/index-list", MetricsMiddleware(s.indexListHandler.HandleGetIndexList, "index-list"))
	mux.HandleFunc("/competition", MetricsMiddleware(s.competitionHandler.HandleGetCompetition, "competition"))
	mux.HandleFunc("/generate", MetricsMiddleware(s.generateHandler.HandleGenerate, "generate"))
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

// upstreamError hides the failing pipeline behind a stable error kind.
func upstreamError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
