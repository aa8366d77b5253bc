// Package submission coordinates a registration from submit to stored ticket.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/conftix/internal/domain/dedupe"
	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/internal/domain/ticket"
	"github.com/okian/conftix/internal/domain/validate"
	"github.com/okian/conftix/pkg/logger"
	"github.com/okian/conftix/pkg/metrics"
	"github.com/okian/conftix/pkg/tracing"
)

// Pipeline stages, used for metrics, spans and StageError.
const (
	StageConfigure = "configure"
	StageRender    = "render"
	StageCapture   = "capture"
	StageUpload    = "upload"
	StageNotify    = "notify"
)

// Slot holds the record shared between the form and ticket screens.
type Slot interface {
	SetRecord(rec model.SubmissionRecord)
}

// Dispatcher hands a claimed record to whatever runs Process.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec model.SubmissionRecord) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(ctx context.Context, rec model.SubmissionRecord) error

func (f DispatchFunc) Dispatch(ctx context.Context, rec model.SubmissionRecord) error {
	return f(ctx, rec)
}

// Renderer builds the offscreen ticket.
type Renderer interface {
	Render(ctx context.Context, rec model.SubmissionRecord) *ticket.Node
}

// Capturer rasterises a rendered ticket.
type Capturer interface {
	Capture(ctx context.Context, n *ticket.Node) (model.CapturedTicketImage, error)
}

// UploadRequest is one ticket image sent to the image host.
type UploadRequest struct {
	File     string // data URL
	PublicID string
}

// Upload is the image host's answer.
type Upload struct {
	SecureURL string
	PublicID  string
}

// Uploader stores ticket images.
type Uploader interface {
	Ready() error
	Upload(ctx context.Context, req UploadRequest) (Upload, error)
}

// Notification is the record sent to the backend once the ticket is hosted.
type Notification struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	GitHub    string `json:"github"`
	AvatarURL string `json:"avatarUrl"`
}

// Notifier persists the final registration.
type Notifier interface {
	Ready() error
	Notify(ctx context.Context, n Notification) error
}

// OutcomeStore keeps per request progress for the ticket screen.
type OutcomeStore interface {
	Save(ctx context.Context, o model.TicketOutcome) error
	Get(ctx context.Context, requestID string) (model.TicketOutcome, error)
	SaveCapture(ctx context.Context, requestID string, img model.CapturedTicketImage) error
}

// Result is what Submit reports back to the form screen.
type Result struct {
	Validation model.ValidationResult
	Record     model.SubmissionRecord
	Redirect   string
}

// Coordinator validates submissions and runs the ticket pipeline at most
// once per request id, however many times it is triggered.
type Coordinator struct {
	renderer Renderer
	capturer Capturer
	uploader Uploader
	notifier Notifier
	outcomes OutcomeStore
	dispatch Dispatcher

	latch        dedupe.Latch
	clock        clockwork.Clock
	newID        func(unixMilli int64) string
	keepCaptures bool
	tracer       trace.Tracer
	log          logger.Logger
}

// NewCoordinator wires a Coordinator. The dispatcher decides where Process
// runs; the app uses the worker pool.
func NewCoordinator(
	r Renderer,
	c Capturer,
	u Uploader,
	n Notifier,
	store OutcomeStore,
	d Dispatcher,
	opts ...Option,
) *Coordinator {
	co := &Coordinator{
		renderer: r,
		capturer: c,
		uploader: u,
		notifier: n,
		outcomes: store,
		dispatch: d,
		clock:    clockwork.NewRealClock(),
		newID:    NewRequestID,
	}
	for _, opt := range opts {
		opt(co)
	}
	if co.latch == nil {
		co.latch = dedupe.NewLatch()
	}
	if co.tracer == nil {
		co.tracer = tracing.Tracer("github.com/okian/conftix/submission")
	}
	if co.log == nil {
		co.log = logger.Get().Named("coordinator")
	}
	return co
}

// Submit validates draft and, when valid, stashes the record in slot and
// triggers its ticket pipeline. An invalid draft makes no outbound call.
func (c *Coordinator) Submit(ctx context.Context, slot Slot, draft model.RegistrationDraft, status model.HandleStatus) (Result, error) {
	res := Result{Validation: validate.Validate(draft, status)}
	if !res.Validation.Valid() {
		metrics.RecordSubmission("invalid")
		return res, ErrInvalidSubmission
	}

	now := c.clock.Now()
	res.Record = model.SubmissionRecord{
		RequestID: c.newID(now.UnixMilli()),
		FullName:  strings.TrimSpace(draft.FullName),
		Email:     strings.TrimSpace(draft.Email),
		GitHub:    strings.TrimSpace(draft.GitHub),
		Avatar:    draft.Avatar,
		CreatedAt: now,
	}
	slot.SetRecord(res.Record)

	if _, err := c.Trigger(ctx, res.Record); err != nil {
		metrics.RecordSubmission("busy")
		return res, err
	}
	metrics.RecordSubmission("accepted")
	res.Redirect = TicketPath(res.Record.RequestID)
	c.log.Info(ctx, "registration accepted",
		logger.String("requestID", res.Record.RequestID),
		logger.String("github", res.Record.GitHub),
	)
	return res, nil
}

// Trigger starts the ticket pipeline for rec unless it already started. It
// reports whether this call started it.
func (c *Coordinator) Trigger(ctx context.Context, rec model.SubmissionRecord) (bool, error) {
	if rec.RequestID == "" {
		return false, ErrMissingRequestID
	}
	// The latch forgets old ids; a stored outcome still marks the run as
	// started unless it only records a refused dispatch.
	if o, err := c.outcomes.Get(ctx, rec.RequestID); err == nil && o.Error != MsgBusyRetry {
		metrics.RecordDuplicateTrigger()
		c.log.Debug(ctx, "ticket pipeline already ran", logger.String("requestID", rec.RequestID))
		return false, nil
	}
	if !c.latch.Claim(ctx, rec.RequestID) {
		metrics.RecordDuplicateTrigger()
		c.log.Debug(ctx, "ticket pipeline already started", logger.String("requestID", rec.RequestID))
		return false, nil
	}

	c.save(ctx, model.TicketOutcome{RequestID: rec.RequestID, State: model.TicketPending})
	if err := c.dispatch.Dispatch(ctx, rec); err != nil {
		c.latch.Release(ctx, rec.RequestID)
		c.save(ctx, model.TicketOutcome{
			RequestID: rec.RequestID,
			State:     model.TicketFailed,
			Error:     MsgBusyRetry,
		})
		c.log.Warn(ctx, "ticket pipeline not started", logger.String("requestID", rec.RequestID), logger.Error(err))
		return false, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return true, nil
}

// Outcome returns the stored progress of requestID.
func (c *Coordinator) Outcome(ctx context.Context, requestID string) (model.TicketOutcome, error) {
	return c.outcomes.Get(ctx, requestID)
}

// Process runs configure, render, capture, upload and notify for rec. The
// first failure stops the pipeline and is recorded on the outcome; nothing is
// retried and an image already uploaded is left in place.
func (c *Coordinator) Process(ctx context.Context, rec model.SubmissionRecord) error {
	ctx, span := c.tracer.Start(ctx, "ticket.pipeline",
		trace.WithAttributes(attribute.String("conftix.request_id", rec.RequestID)))
	defer span.End()

	out := model.TicketOutcome{RequestID: rec.RequestID}
	if err := c.run(ctx, rec, &out); err != nil {
		stage := FailedStage(err)
		out.State = model.TicketFailed
		out.Error = UserMessage(err)
		c.save(ctx, out)

		metrics.RecordPipelineResult("failed", stage)
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		c.log.Error(ctx, "ticket pipeline failed",
			logger.String("requestID", rec.RequestID),
			logger.String("stage", stage),
			logger.Error(err),
		)
		return err
	}

	out.State = model.TicketDone
	c.save(ctx, out)
	metrics.RecordPipelineResult("done", "")
	c.log.Info(ctx, "ticket stored",
		logger.String("requestID", rec.RequestID),
		logger.String("ticketURL", out.TicketURL),
	)
	return nil
}

func (c *Coordinator) run(ctx context.Context, rec model.SubmissionRecord, out *model.TicketOutcome) error {
	if err := c.stage(ctx, StageConfigure, func(context.Context) error {
		return errors.Join(c.uploader.Ready(), c.notifier.Ready())
	}); err != nil {
		return err
	}

	c.transition(ctx, out, model.TicketCapturing)
	var node *ticket.Node
	if err := c.stage(ctx, StageRender, func(ctx context.Context) error {
		node = c.renderer.Render(ctx, rec)
		if node == nil {
			return ErrNoTicket
		}
		return nil
	}); err != nil {
		return err
	}

	var shot model.CapturedTicketImage
	if err := c.stage(ctx, StageCapture, func(ctx context.Context) error {
		var err error
		shot, err = c.capturer.Capture(ctx, node)
		return err
	}); err != nil {
		return err
	}
	if c.keepCaptures {
		if err := c.outcomes.SaveCapture(ctx, rec.RequestID, shot); err != nil {
			c.log.Warn(ctx, "keeping ticket capture failed", logger.String("requestID", rec.RequestID), logger.Error(err))
		}
	}

	c.transition(ctx, out, model.TicketUploading)
	var up Upload
	if err := c.stage(ctx, StageUpload, func(ctx context.Context) error {
		var err error
		up, err = c.uploader.Upload(ctx, UploadRequest{
			File:     shot.DataURL,
			PublicID: PublicID(rec.FullName, rec.RequestID),
		})
		return err
	}); err != nil {
		return err
	}
	out.TicketURL, out.PublicID = up.SecureURL, up.PublicID

	c.transition(ctx, out, model.TicketNotifying)
	return c.stage(ctx, StageNotify, func(ctx context.Context) error {
		return c.notifier.Notify(ctx, Notification{
			FullName:  rec.FullName,
			Email:     rec.Email,
			GitHub:    rec.GitHub,
			AvatarURL: up.SecureURL,
		})
	})
}

func (c *Coordinator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "ticket."+name)
	defer span.End()

	start := c.clock.Now()
	err := fn(ctx)
	metrics.RecordStageLatency(name, float64(c.clock.Since(start).Microseconds())/1000)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

func (c *Coordinator) transition(ctx context.Context, out *model.TicketOutcome, state model.TicketState) {
	out.State = state
	c.save(ctx, *out)
}

func (c *Coordinator) save(ctx context.Context, o model.TicketOutcome) {
	o.UpdatedAt = c.clock.Now()
	if err := c.outcomes.Save(ctx, o); err != nil {
		c.log.Warn(ctx, "saving ticket outcome failed",
			logger.String("requestID", o.RequestID),
			logger.String("state", string(o.State)),
			logger.Error(err),
		)
	}
}

// UserMessage is the alert text shown on the ticket screen for err.
func UserMessage(err error) string {
	var se *StageError
	if errors.As(err, &se) && se.Err != nil {
		err = se.Err
	}
	if err == nil || err.Error() == "" {
		return "An error occurred during the upload."
	}
	return err.Error()
}
