// Package service wires the registration components into a running service
// and exposes its HTTP surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/conftix/internal/adapters/backend"
	"github.com/okian/conftix/internal/adapters/github"
	"github.com/okian/conftix/internal/adapters/hosting"
	"github.com/okian/conftix/internal/adapters/http/api"
	"github.com/okian/conftix/internal/adapters/http/site"
	"github.com/okian/conftix/internal/adapters/http/swagger"
	"github.com/okian/conftix/internal/adapters/mq/queue"
	"github.com/okian/conftix/internal/adapters/mq/worker"
	"github.com/okian/conftix/internal/adapters/repository"
	"github.com/okian/conftix/internal/adapters/session"
	"github.com/okian/conftix/internal/config"
	"github.com/okian/conftix/internal/domain/dedupe"
	"github.com/okian/conftix/internal/domain/imaging"
	"github.com/okian/conftix/internal/domain/lookup"
	"github.com/okian/conftix/internal/domain/submission"
	"github.com/okian/conftix/internal/domain/ticket"
	"github.com/okian/conftix/pkg/logger"
	"github.com/okian/conftix/pkg/metrics"
	"github.com/okian/conftix/pkg/tracing"
)

const (
	serviceName     = "conftix"
	drainTimeout    = 30 * time.Second
	tracingShutdown = 5 * time.Second
)

// ErrNotStarted is returned by operations that need a started service.
var ErrNotStarted = errors.New("service not started")

// Service owns the registration components and their lifecycle.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Collaborators; built from cfg unless injected.
	lookuper lookup.Lookuper
	searcher lookup.Searcher
	uploader submission.Uploader
	notifier submission.Notifier
	clock    clockwork.Clock

	// Core components
	store       repository.Store
	latch       dedupe.Latch
	jobs        *queue.InMemoryQueue
	pool        *worker.Pool
	coordinator *submission.Coordinator
	compressor  *imaging.Compressor
	sessions    *session.Store

	// State
	started       bool
	cancel        context.CancelFunc
	traceShutdown tracing.ShutdownFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration the service is built from.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithWorkerCount sets the number of ticket workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.cfg.WorkerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of waiting ticket jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cfg.QueueSize = size
		}
	}
}

// WithDedupeSize bounds the request id latch.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cfg.DedupeSize = size
		}
	}
}

// WithLookup replaces the GitHub client used for handle checks and
// suggestions.
func WithLookup(l lookup.Lookuper, search lookup.Searcher) Option {
	return func(s *Service) {
		s.lookuper = l
		s.searcher = search
	}
}

// WithUploader replaces the image host client.
func WithUploader(u submission.Uploader) Option {
	return func(s *Service) {
		s.uploader = u
	}
}

// WithNotifier replaces the backend client.
func WithNotifier(n submission.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock sets the clock used for debouncing, expiry and request ids.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Options that tune sizes apply on top of the
// configuration, so WithConfig should come first.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:   config.New(),
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds every component and starts the workers and the session
// sweeper.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	cfg := s.cfg
	s.logger.Info(ctx, "starting registration service...")

	shutdown, err := tracing.Setup(ctx, serviceName, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	s.traceShutdown = shutdown

	store, err := repository.Open(cfg.StorageDriver, cfg.SQLitePath)
	if err != nil {
		_ = shutdown(ctx)
		return fmt.Errorf("open outcome store: %w", err)
	}
	s.store = store
	s.logger.Info(ctx, "outcome store ready", logger.String("driver", cfg.StorageDriver))

	timeout := time.Duration(cfg.HTTPTimeoutMS) * time.Millisecond
	httpClient := &http.Client{Timeout: timeout}

	if s.lookuper == nil || s.searcher == nil {
		gh, err := github.New(
			github.WithBaseURL(cfg.GitHubAPIURL),
			github.WithToken(cfg.GitHubToken),
			github.WithHTTPClient(httpClient),
		)
		if err != nil {
			_ = store.Close()
			_ = shutdown(ctx)
			return fmt.Errorf("github client: %w", err)
		}
		if s.lookuper == nil {
			s.lookuper = gh
		}
		if s.searcher == nil {
			s.searcher = gh
		}
	}
	if s.uploader == nil {
		s.uploader = hosting.New(cfg.CloudName, cfg.UploadPreset,
			hosting.WithEndpoint(cfg.UploadEndpoint),
			hosting.WithHTTPClient(httpClient),
		)
	}
	if s.notifier == nil {
		s.notifier = backend.New(cfg.APIURL, backend.WithHTTPClient(httpClient))
	}

	if err := errors.Join(s.uploader.Ready(), s.notifier.Ready()); err != nil {
		s.logger.Warn(ctx, "ticket pipeline is not configured; tickets will fail until it is", logger.Error(err))
	}

	s.compressor = imaging.New(
		imaging.WithMaxWidth(cfg.AvatarMaxWidth),
		imaging.WithQuality(cfg.AvatarQuality),
		imaging.WithMaxBytes(cfg.AvatarMaxBytes),
	)

	renderer := ticket.NewRenderer(
		ticket.WithEvent(cfg.EventDate, cfg.EventLocation),
		ticket.WithBackgroundURL(cfg.TicketBackground),
		ticket.WithTrustedHosts(cfg.TicketTrustedHosts...),
		ticket.WithHTTPClient(httpClient),
	)
	capturer := ticket.NewCapturer(renderer.Face(), nil)

	s.latch = dedupe.NewLatch(dedupe.WithMaxSize(cfg.DedupeSize))
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(cfg.QueueSize))
	s.coordinator = submission.NewCoordinator(renderer, capturer, s.uploader, s.notifier, s.store, s.jobs,
		submission.WithLatch(s.latch),
		submission.WithClock(s.clock),
		submission.WithKeepCaptures(cfg.KeepCaptures),
		submission.WithTracer(tracing.Tracer(serviceName)),
	)

	// Pipelines outlive the request that started them and stop only when
	// the service does.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.pool = worker.NewPool(cfg.WorkerCount, s.jobs, s.coordinator)
	s.pool.Start(runCtx)

	s.sessions = session.NewStore(s.lookuper, s.searcher,
		session.WithTTL(time.Duration(cfg.SessionTTLMinutes)*time.Minute),
		session.WithClock(s.clock),
		session.WithCheckerOptions(
			lookup.WithCheckClock(s.clock),
			lookup.WithCheckDelay(time.Duration(cfg.HandleDebounceMS)*time.Millisecond),
			lookup.WithCheckTimeout(timeout),
		),
		session.WithSuggesterOptions(
			lookup.WithSuggestClock(s.clock),
			lookup.WithSuggestDelay(time.Duration(cfg.SuggestDebounceMS)*time.Millisecond),
			lookup.WithSuggestLimit(cfg.SuggestionLimit),
		),
	)
	go s.sessions.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "registration service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", cfg.QueueSize),
		logger.Int("dedupeSize", cfg.DedupeSize),
	)
	return nil
}

// Stop drains queued tickets and releases every component.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping registration service...")

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	if err := s.pool.Shutdown(drainCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	cancel()
	s.cancel()

	s.sessions.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing outcome store failed", logger.Error(err))
	}

	traceCtx, traceCancel := context.WithTimeout(ctx, tracingShutdown)
	if err := s.traceShutdown(traceCtx); err != nil {
		s.logger.Warn(ctx, "tracing shutdown failed", logger.Error(err))
	}
	traceCancel()

	s.started = false
	s.logger.Info(ctx, "registration service stopped")
}

// Register attaches the JSON API, its docs and the screens to mux.
func (s *Service) Register(ctx context.Context, mux *http.ServeMux) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}

	apiServer := api.NewServer(api.Dependencies{
		Sessions:   s.sessions,
		Compressor: s.compressor,
		Outcomes:   s.store,
	}, s)
	apiServer.Register(ctx, mux)

	pages := site.NewHandler(s.sessions, s.coordinator, s.compressor,
		site.WithEvent(s.cfg.EventDate, s.cfg.EventLocation),
		site.WithDownloads(s.cfg.KeepCaptures),
	)
	pages.Register(ctx, mux)

	swagger.Register(ctx, mux)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.QueueSize,
		"dedupeSize":  s.cfg.DedupeSize,
	}

	if s.started {
		ctx := context.Background()
		queueLen := s.jobs.Len(ctx)
		outcomes := s.store.Count(ctx)
		sessions := s.sessions.Len()
		processed, failed := s.pool.Processed()

		stats["workerCount"] = s.pool.Size()
		stats["queueLength"] = queueLen
		stats["storedOutcomes"] = outcomes
		stats["activeSessions"] = sessions
		stats["claimedRequests"] = s.latch.Size()
		stats["ticketsProcessed"] = processed
		stats["ticketsFailed"] = failed

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoredOutcomes(outcomes)
		metrics.UpdateActiveSessions(sessions)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
