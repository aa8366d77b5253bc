package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/conftix/internal/domain/model"
)

type selectRequest struct {
	Login string `json:"login"`
}

type selectResponse struct {
	Handle string             `json:"handle"`
	Status model.HandleStatus `json:"status"`
}

// SuggestionHandler serves the handle suggestion panel.
type SuggestionHandler struct {
	sessions Sessions
}

// NewSuggestionHandler creates a new suggestion handler.
func NewSuggestionHandler(sessions Sessions) *SuggestionHandler {
	return &SuggestionHandler{sessions: sessions}
}

// HandleUpdate handles POST /api/suggestions with the typed handle.
func (h *SuggestionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req handleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	s := h.sessions.FromRequest(w, r)
	s.Suggester.Update(req.Handle)
	writeJSON(w, http.StatusOK, s.Suggester.Snapshot())
}

// HandleGet handles GET /api/suggestions.
func (h *SuggestionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.FromRequest(w, r)
	writeJSON(w, http.StatusOK, s.Suggester.Snapshot())
}

// HandleSelect handles POST /api/suggestions/select. The chosen handle is
// confirmed without another lookup.
func (h *SuggestionHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	login := strings.TrimPrefix(strings.TrimSpace(req.Login), "@")
	if login == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing login", ErrBadRequest))
		return
	}
	s := h.sessions.FromRequest(w, r)
	handle := s.Suggester.Select(login)
	_, status := s.Checker.Status()
	writeJSON(w, http.StatusOK, selectResponse{Handle: handle, Status: status})
}

// HandleDismiss handles POST /api/suggestions/dismiss (a click outside the
// panel).
func (h *SuggestionHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.FromRequest(w, r)
	s.Suggester.Dismiss()
	writeJSON(w, http.StatusOK, s.Suggester.Snapshot())
}
