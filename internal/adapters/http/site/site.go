// Package site serves the registration form and ticket screens.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/okian/conftix/internal/adapters/http/api"
	"github.com/okian/conftix/internal/adapters/session"
	"github.com/okian/conftix/internal/domain/imaging"
	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/internal/domain/submission"
	"github.com/okian/conftix/internal/domain/ticket"
	"github.com/okian/conftix/internal/domain/validate"
	"github.com/okian/conftix/pkg/logger"
)

// Sessions resolves form sessions.
type Sessions interface {
	FromRequest(w http.ResponseWriter, r *http.Request) *session.Session
	Lookup(r *http.Request) (*session.Session, bool)
}

// Coordinator accepts submissions and starts their ticket pipeline.
type Coordinator interface {
	Submit(ctx context.Context, slot submission.Slot, draft model.RegistrationDraft, status model.HandleStatus) (submission.Result, error)
	Trigger(ctx context.Context, rec model.SubmissionRecord) (bool, error)
}

// Handler renders the form and ticket screens.
type Handler struct {
	sessions    Sessions
	coordinator Coordinator
	compressor  api.Compressor

	eventDate     string
	eventLocation string
	pollInterval  time.Duration
	downloads     bool
	log           logger.Logger
}

// NewHandler creates a new site handler.
func NewHandler(sessions Sessions, coordinator Coordinator, compressor api.Compressor, opts ...Option) *Handler {
	h := &Handler{
		sessions:     sessions,
		coordinator:  coordinator,
		compressor:   compressor,
		pollInterval: DefaultPollInterval,
		log:          logger.Get().Named("site"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register attaches the screens and static assets to mux.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", api.MetricsMiddleware(h.HandleForm, "form"))
	mux.HandleFunc("POST /{$}", api.MetricsMiddleware(h.HandleSubmit, "submit"))
	mux.HandleFunc("GET /ticket", api.MetricsMiddleware(h.HandleTicket, "ticket_page"))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(FS())))
}

type page struct {
	EventDate     string
	EventLocation string
	MaxKB         int

	Values    model.RegistrationDraft
	AvatarURL template.URL
	Errors    model.ValidationResult
	Alert     string
}

type ticketPage struct {
	EventDate     string
	EventLocation string

	Record       model.SubmissionRecord
	AvatarURL    template.URL
	PollMS       int64
	Downloads    bool
	Alert        string
	TicketNumber string
}

// HandleForm handles GET /. Each fresh visit starts over, so the shared
// record and any kept avatar are dropped.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.FromRequest(w, r)
	s.ClearRecord()
	s.SetAvatar(nil)
	h.render(w, r, http.StatusOK, "form.html", h.formPage())
}

// HandleSubmit handles POST /: compress a newly chosen avatar, validate and
// hand the draft to the coordinator.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.FromRequest(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	p := h.formPage()
	p.Values = model.RegistrationDraft{
		FullName: r.FormValue(model.FieldFullName),
		Email:    r.FormValue(model.FieldEmail),
		GitHub:   r.FormValue(model.FieldGitHub),
	}

	avatarMsg := ""
	if in, err := api.ReadAvatar(w, r); err == nil {
		out, cerr := h.compressor.Compress(r.Context(), in)
		if cerr != nil {
			// A rejected replacement leaves the field empty.
			avatarMsg = imaging.FieldMessage(cerr)
			s.SetAvatar(nil)
		} else {
			s.SetAvatar(&out)
		}
	}
	p.Values.Avatar = s.Avatar()
	p.AvatarURL = template.URL(api.AvatarDataURL(p.Values.Avatar)) //nolint:gosec // generated from our own bytes

	status := s.Checker.StatusFor(strings.TrimSpace(p.Values.GitHub))
	if avatarMsg != "" {
		p.Errors = validate.Validate(p.Values, status)
		p.Errors.Avatar = avatarMsg
		h.render(w, r, http.StatusUnprocessableEntity, "form.html", p)
		return
	}

	res, err := h.coordinator.Submit(r.Context(), s, p.Values, status)
	switch {
	case errors.Is(err, submission.ErrInvalidSubmission):
		p.Errors = res.Validation
		h.render(w, r, http.StatusUnprocessableEntity, "form.html", p)
	case err != nil:
		h.log.Warn(r.Context(), "submission not started", logger.Error(err))
		p.Alert = MsgBusy
		h.render(w, r, http.StatusServiceUnavailable, "form.html", p)
	default:
		s.SetAvatar(nil)
		http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
	}
}

// HandleTicket handles GET /ticket. Without a shared record the visitor is
// sent back to the form; otherwise the ticket pipeline is triggered, which is
// a no-op when it already ran for this request id.
func (h *Handler) HandleTicket(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Lookup(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	rec, ok := s.Record()
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	// A stale or foreign ts never starts the pipeline for the wrong record.
	if ts := r.URL.Query().Get("ts"); ts != "" && ts != rec.RequestID {
		http.Redirect(w, r, submission.TicketPath(rec.RequestID), http.StatusSeeOther)
		return
	}

	p := ticketPage{
		EventDate:     h.eventDate,
		EventLocation: h.eventLocation,
		Record:        rec,
		AvatarURL:     template.URL(api.AvatarDataURL(rec.Avatar)), //nolint:gosec // generated from our own bytes
		PollMS:        h.pollInterval.Milliseconds(),
		Downloads:     h.downloads,
		TicketNumber:  "#" + ticket.ShortID(rec.RequestID),
	}
	if p.AvatarURL == "" && rec.AvatarURL != "" {
		p.AvatarURL = template.URL(rec.AvatarURL) //nolint:gosec // hosted avatar from our own record
	}

	if _, err := h.coordinator.Trigger(r.Context(), rec); err != nil {
		p.Alert = submission.UserMessage(err)
	}
	h.render(w, r, http.StatusOK, "ticket.html", p)
}

func (h *Handler) formPage() page {
	maxKB := 0
	if h.compressor != nil {
		maxKB = h.compressor.MaxBytes() / 1000
	}
	return page{EventDate: h.eventDate, EventLocation: h.eventLocation, MaxKB: maxKB}
}

// render executes into a buffer first so a template error still yields a
// clean 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error(r.Context(), "render page", logger.String("page", name), logger.Error(fmt.Errorf("%w: %w", ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
