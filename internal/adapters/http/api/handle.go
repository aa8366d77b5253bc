package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/internal/domain/validate"
)

type handleRequest struct {
	Handle string `json:"handle"`
}

type handleResponse struct {
	Input   string             `json:"input"`
	Status  model.HandleStatus `json:"status"`
	Message string             `json:"message,omitempty"`
}

// HandleHandler serves the live GitHub handle check.
type HandleHandler struct {
	sessions Sessions
}

// NewHandleHandler creates a new handle handler.
func NewHandleHandler(sessions Sessions) *HandleHandler {
	return &HandleHandler{sessions: sessions}
}

// HandleUpdate handles POST /api/handle: records the typed handle and, once
// input settles, looks it up.
func (h *HandleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req handleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	s := h.sessions.FromRequest(w, r)
	s.Checker.Update(req.Handle)
	writeJSON(w, http.StatusOK, handleStatus(s.Checker.Status()))
}

// HandleGet handles GET /api/handle: the current status of the last input.
func (h *HandleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.FromRequest(w, r)
	writeJSON(w, http.StatusOK, handleStatus(s.Checker.Status()))
}

// handleStatus leaves the message empty for blank input so an untouched
// field is not flagged while typing.
func handleStatus(input string, status model.HandleStatus) handleResponse {
	res := handleResponse{Input: input, Status: status}
	if strings.TrimSpace(input) != "" {
		res.Message = validate.Handle(input, status)
	}
	return res
}
