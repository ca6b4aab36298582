// Package api exposes the scoring engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/okian/jansou/internal/domain/errs"
	"github.com/okian/jansou/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	GroupDependencies
	SessionDependencies
	StandingsDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	groupsHandler    *GroupsHandler
	sessionsHandler  *SessionsHandler
	standingsHandler *StandingsHandler

	tokens []string
	logger logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	tokens []string
	logger logger.Logger
	now    func() time.Time
}

// WithTokens requires one of tokens as a bearer token on every write route.
// No tokens leaves writes open.
func WithTokens(tokens ...string) Option {
	return func(o *serverOptions) {
		o.tokens = append(o.tokens, tokens...)
	}
}

// WithLogger sets the logger used for request logs and internal errors.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source used to pick the default month of session lists.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := serverOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("http")
	}

	return &Server{
		healthHandler:    NewHealthHandler(),
		groupsHandler:    NewGroupsHandler(deps, o.logger),
		sessionsHandler:  NewSessionsHandler(deps, o.logger, o.now),
		standingsHandler: NewStandingsHandler(deps, o.logger),
		tokens:           o.tokens,
		logger:           o.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))

	mux.HandleFunc("POST /api/groups", s.write(s.groupsHandler.HandleCreate, "create_group"))
	mux.HandleFunc("GET /api/groups/{slug}/exists", MetricsMiddleware(s.groupsHandler.HandleExists, "group_exists"))
	mux.HandleFunc("PUT /api/groups/{slug}/config", s.write(s.groupsHandler.HandleUpdateConfig, "update_config"))
	mux.HandleFunc("GET /api/groups/{slug}/members", MetricsMiddleware(s.groupsHandler.HandleListMembers, "list_members"))
	mux.HandleFunc("POST /api/groups/{slug}/members", s.write(s.groupsHandler.HandleAddMember, "add_member"))

	mux.HandleFunc("POST /api/groups/{slug}/sessions", s.write(s.sessionsHandler.HandleSubmit, "submit_session"))
	mux.HandleFunc("GET /api/groups/{slug}/sessions", MetricsMiddleware(s.sessionsHandler.HandleList, "list_sessions"))
	mux.HandleFunc("GET /api/groups/{slug}/sessions/{session_id}", MetricsMiddleware(s.sessionsHandler.HandleDetail, "session_detail"))
	mux.HandleFunc("PUT /api/groups/{slug}/sessions/{session_id}", s.write(s.sessionsHandler.HandleUpdate, "update_session"))
	mux.HandleFunc("DELETE /api/groups/{slug}/sessions/{session_id}", s.write(s.sessionsHandler.HandleDelete, "delete_session"))

	mux.HandleFunc("GET /api/groups/{slug}/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
}

// Handler wraps mux with request ids and request logging.
func (s *Server) Handler(mux http.Handler) http.Handler {
	return RequestIDMiddleware(mux, s.logger)
}

func (s *Server) write(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return MetricsMiddleware(AuthMiddleware(next, s.tokens), endpoint)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type mutationResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	SessionID     string `json:"session_id"`
	ScoresCreated int    `json:"scores_created,omitempty"`
	ScoresUpdated int    `json:"scores_updated,omitempty"`
	ScoresDeleted int    `json:"scores_deleted,omitempty"`
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

// writeServiceError maps the engine's error kinds to HTTP statuses. Internal
// errors are logged and reported without detail.
func writeServiceError(ctx context.Context, w http.ResponseWriter, l logger.Logger, err error) {
	status, code := statusOf(err)
	if status == http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.Error(err))
		writeJSON(w, status, errorResponse{Code: code, Message: "internal error"})
		return
	}

	resp := errorResponse{Code: code, Message: err.Error()}
	var e *errs.Error
	if errors.As(err, &e) {
		resp.Field = e.Field
		resp.Message = e.Message()
	}
	writeJSON(w, status, resp)
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errs.ErrGroupNotFound):
		return http.StatusNotFound, "group_not_found"
	case errors.Is(err, errs.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, errs.ErrDuplicateSession):
		return http.StatusConflict, "duplicate_session"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decode reads a JSON body into v. A well-formed body carrying a value of the
// wrong type, such as a fractional score, is a validation error on that field.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		e := errs.Validation("decode body", "", "", typeErr.Field,
			fmt.Sprintf("%s must be %s, got %s", typeErr.Field, typeName(typeErr.Type), typeErr.Value))
		e.Err = err
		return e
	}
	return &errs.Error{Op: "decode body", Kind: ErrBadRequest, Msg: "request body must be valid JSON", Err: err}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "a different type"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "a list"
	default:
		return "an object"
	}
}
