package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/jansou/internal/app"
	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/internal/domain/model"
	"github.com/okian/jansou/pkg/logger"
)

// SessionDependencies defines the interface for session operations.
type SessionDependencies interface {
	SubmitSession(ctx context.Context, slug string, in service.SessionInput) (service.SubmitResult, error)
	UpdateSession(ctx context.Context, slug, sessionID string, in service.SessionInput) (service.SubmitResult, error)
	DeleteSession(ctx context.Context, slug, sessionID string) (service.DeleteResult, error)
	GetSessionDetail(ctx context.Context, slug, sessionID string) (model.SessionDetail, error)
	ListSessions(ctx context.Context, slug string, month model.Month, page int) (service.SessionPage, error)
}

// SessionsHandler handles session requests.
type SessionsHandler struct {
	deps   SessionDependencies
	logger logger.Logger
	now    func() time.Time
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies, l logger.Logger, now func() time.Time) *SessionsHandler {
	return &SessionsHandler{deps: deps, logger: l, now: now}
}

const sessionDateLayout = "2006-01-02"

// sessionRequest mirrors the OpenAPI schema for session submit and update.
type sessionRequest struct {
	SessionID   string         `json:"session_id"`
	SessionDate string         `json:"session_date"`
	Scores      []scoreRequest `json:"scores"`
}

type scoreRequest struct {
	MemberName string `json:"member_name"`
	Score      *int   `json:"score"`
	Chombo     int    `json:"chombo"`
}

func (req sessionRequest) input(op, slug string) (service.SessionInput, error) {
	in := service.SessionInput{SessionID: req.SessionID}
	if d := strings.TrimSpace(req.SessionDate); d != "" {
		date, err := time.Parse(sessionDateLayout, d)
		if err != nil {
			return service.SessionInput{}, errs.Validation(op, slug, req.SessionID, "session_date",
				"session date must be YYYY-MM-DD")
		}
		in.SessionDate = &date
	}
	for i, s := range req.Scores {
		if s.Score == nil {
			return service.SessionInput{}, errs.Validation(op, slug, req.SessionID,
				fmt.Sprintf("scores[%d].score", i), "score is required")
		}
		in.Entries = append(in.Entries, service.EntryInput{PlayerName: s.MemberName, Score: *s.Score, Chombo: s.Chombo})
	}
	return in, nil
}

// HandleSubmit handles POST /api/groups/{slug}/sessions.
func (h *SessionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_session"
	slug := r.PathValue("slug")

	var req sessionRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	in, err := req.input(op, slug)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	res, err := h.deps.SubmitSession(r.Context(), slug, in)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{
		Success:       true,
		Message:       fmt.Sprintf("Session %s recorded", res.SessionID),
		SessionID:     res.SessionID,
		ScoresCreated: res.Entries,
	})
}

// HandleUpdate handles PUT /api/groups/{slug}/sessions/{session_id}. The
// session id in the path wins over one in the body.
func (h *SessionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_session"
	slug, sessionID := r.PathValue("slug"), r.PathValue("session_id")

	var req sessionRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	req.SessionID = sessionID
	in, err := req.input(op, slug)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	res, err := h.deps.UpdateSession(r.Context(), slug, sessionID, in)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{
		Success:       true,
		Message:       fmt.Sprintf("Session %s updated", res.SessionID),
		SessionID:     res.SessionID,
		ScoresUpdated: res.Entries,
	})
}

// HandleDelete handles DELETE /api/groups/{slug}/sessions/{session_id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.DeleteSession(r.Context(), r.PathValue("slug"), r.PathValue("session_id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{
		Success:       true,
		Message:       fmt.Sprintf("Session %s deleted", res.SessionID),
		SessionID:     res.SessionID,
		ScoresDeleted: res.ScoresDeleted,
	})
}

// HandleDetail handles GET /api/groups/{slug}/sessions/{session_id}.
func (h *SessionsHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.GetSessionDetail(r.Context(), r.PathValue("slug"), r.PathValue("session_id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleList handles GET /api/groups/{slug}/sessions?month=YYYY-MM&page=N.
// The month defaults to the current one and the page to 1.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"
	slug := r.PathValue("slug")

	month := model.MonthOf(h.now())
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := model.ParseMonth(raw)
		if err != nil {
			writeServiceError(r.Context(), w, h.logger, errs.Validation(op, slug, "", "month", err.Error()))
			return
		}
		month = m
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeServiceError(r.Context(), w, h.logger, errs.Validation(op, slug, "", "page", "page must be an integer"))
			return
		}
		page = n
	}

	p, err := h.deps.ListSessions(r.Context(), slug, month, page)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
