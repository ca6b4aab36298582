package api

import (
	"context"
	"net/http"

	service "github.com/okian/jansou/internal/app"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/logger"
)

// GroupDependencies defines the interface for group administration.
type GroupDependencies interface {
	CreateGroup(ctx context.Context, in service.GroupInput) (model.Group, error)
	GroupExists(ctx context.Context, slug string) (bool, error)
	UpdateGroupConfig(ctx context.Context, slug string, in service.ScoringInput) (model.Group, error)
	AddPlayer(ctx context.Context, slug, name string) (model.Player, error)
	ListPlayers(ctx context.Context, slug string) ([]model.Player, error)
}

// GroupsHandler handles group and membership requests.
type GroupsHandler struct {
	deps   GroupDependencies
	logger logger.Logger
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(deps GroupDependencies, l logger.Logger) *GroupsHandler {
	return &GroupsHandler{deps: deps, logger: l}
}

type scoringRequest struct {
	StartPoint    *int    `json:"start_point"`
	TargetPoint   *int    `json:"target_point"`
	Uma           *[4]int `json:"uma"`
	ChomboEnabled *bool   `json:"chombo_enabled"`
}

func (s scoringRequest) input() service.ScoringInput {
	return service.ScoringInput{
		StartPoint:    s.StartPoint,
		TargetPoint:   s.TargetPoint,
		Uma:           s.Uma,
		ChomboEnabled: s.ChomboEnabled,
	}
}

type groupRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	scoringRequest
}

type memberRequest struct {
	Name string `json:"name"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// HandleCreate handles POST /api/groups.
func (h *GroupsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	g, err := h.deps.CreateGroup(r.Context(), service.GroupInput{
		Name:         req.Name,
		Slug:         req.Slug,
		ScoringInput: req.input(),
	})
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// HandleExists handles GET /api/groups/{slug}/exists.
func (h *GroupsHandler) HandleExists(w http.ResponseWriter, r *http.Request) {
	ok, err := h.deps.GroupExists(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
	}
	writeJSON(w, status, existsResponse{Exists: ok})
}

// HandleUpdateConfig handles PUT /api/groups/{slug}/config.
func (h *GroupsHandler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req scoringRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	g, err := h.deps.UpdateGroupConfig(r.Context(), r.PathValue("slug"), req.input())
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleListMembers handles GET /api/groups/{slug}/members.
func (h *GroupsHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	players, err := h.deps.ListPlayers(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	if players == nil {
		players = []model.Player{}
	}
	writeJSON(w, http.StatusOK, players)
}

// HandleAddMember handles POST /api/groups/{slug}/members.
func (h *GroupsHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	p, err := h.deps.AddPlayer(r.Context(), r.PathValue("slug"), req.Name)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
