// Package api serves the JSON endpoints behind the registration screens:
// live handle feedback, avatar previews and ticket progress.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/conftix/internal/adapters/session"
	"github.com/okian/conftix/internal/domain/model"
)

// Sessions resolves the caller's form session, creating one when needed.
type Sessions interface {
	FromRequest(w http.ResponseWriter, r *http.Request) *session.Session
}

// Compressor shrinks uploaded avatars.
type Compressor interface {
	Compress(ctx context.Context, in model.Avatar) (model.Avatar, error)
	MaxBytes() int
}

// Outcomes reads ticket progress and kept captures.
type Outcomes interface {
	Get(ctx context.Context, requestID string) (model.TicketOutcome, error)
	Capture(ctx context.Context, requestID string) (model.CapturedTicketImage, error)
}

// Dependencies required by the handlers.
type Dependencies struct {
	Sessions   Sessions
	Compressor Compressor
	Outcomes   Outcomes
}

// Server wires HTTP routes for the JSON API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	handleHandler     *HandleHandler
	suggestionHandler *SuggestionHandler
	avatarHandler     *AvatarHandler
	ticketHandler     *TicketHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		handleHandler:     NewHandleHandler(deps.Sessions),
		suggestionHandler: NewSuggestionHandler(deps.Sessions),
		avatarHandler:     NewAvatarHandler(deps.Sessions, deps.Compressor),
		ticketHandler:     NewTicketHandler(deps.Outcomes),
	}
}

// Register attaches all API routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/handle", MetricsMiddleware(s.handleHandler.HandleGet, "handle"))
	mux.HandleFunc("POST /api/handle", MetricsMiddleware(s.handleHandler.HandleUpdate, "handle"))

	mux.HandleFunc("GET /api/suggestions", MetricsMiddleware(s.suggestionHandler.HandleGet, "suggestions"))
	mux.HandleFunc("POST /api/suggestions", MetricsMiddleware(s.suggestionHandler.HandleUpdate, "suggestions"))
	mux.HandleFunc("POST /api/suggestions/select", MetricsMiddleware(s.suggestionHandler.HandleSelect, "suggestions_select"))
	mux.HandleFunc("POST /api/suggestions/dismiss", MetricsMiddleware(s.suggestionHandler.HandleDismiss, "suggestions_dismiss"))

	mux.HandleFunc("POST /api/avatar", MetricsMiddleware(s.avatarHandler.HandleUpload, "avatar"))
	mux.HandleFunc("DELETE /api/avatar", MetricsMiddleware(s.avatarHandler.HandleRemove, "avatar"))

	mux.HandleFunc("GET /api/tickets/{requestId}", MetricsMiddleware(s.ticketHandler.HandleGet, "ticket"))
	mux.HandleFunc("GET /api/tickets/{requestId}/image", MetricsMiddleware(s.ticketHandler.HandleImage, "ticket_image"))
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

// decodeJSON reads a small JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(v)
}
