package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/conftix/internal/adapters/repository"
)

// TicketHandler exposes ticket pipeline progress.
type TicketHandler struct {
	outcomes Outcomes
}

// NewTicketHandler creates a new ticket handler.
func NewTicketHandler(outcomes Outcomes) *TicketHandler {
	return &TicketHandler{outcomes: outcomes}
}

// HandleGet handles GET /api/tickets/{requestId}.
func (h *TicketHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("requestId")
	out, err := h.outcomes.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: ticket %s", ErrNotFound, id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleImage handles GET /api/tickets/{requestId}/image, serving the kept
// PNG as a download.
func (h *TicketHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("requestId")
	img, err := h.outcomes.Capture(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: no kept image for %s", ErrNotFound, id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	data, err := img.PNG()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "ticket-"+id+".png"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
