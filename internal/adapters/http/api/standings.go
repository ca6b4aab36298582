package api

import (
	"context"
	"net/http"

	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/logger"
)

// StandingsDependencies defines the interface for standings queries.
type StandingsDependencies interface {
	GetStandings(ctx context.Context, slug string, month *model.Month) ([]model.Standing, error)
}

// StandingsHandler handles standings requests.
type StandingsHandler struct {
	deps   StandingsDependencies
	logger logger.Logger
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies, l logger.Logger) *StandingsHandler {
	return &StandingsHandler{deps: deps, logger: l}
}

type standingsResponse struct {
	Month     string           `json:"month,omitempty"`
	Standings []model.Standing `json:"standings"`
}

// HandleGetStandings handles GET /api/groups/{slug}/standings?month=YYYY-MM.
// Without month the all-time table is returned.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"
	slug := r.PathValue("slug")

	var month *model.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := model.ParseMonth(raw)
		if err != nil {
			writeServiceError(r.Context(), w, h.logger, errs.Validation(op, slug, "", "month", err.Error()))
			return
		}
		month = &m
	}

	rows, err := h.deps.GetStandings(r.Context(), slug, month)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	resp := standingsResponse{Standings: rows}
	if month != nil {
		resp.Month = month.String()
	}
	if resp.Standings == nil {
		resp.Standings = []model.Standing{}
	}
	writeJSON(w, http.StatusOK, resp)
}
