package lookup

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/internal/domain/validate"
	"github.com/okian/conftix/pkg/logger"
	"github.com/okian/conftix/pkg/metrics"
)

// Candidate is a raw search hit before enrichment.
type Candidate struct {
	Login     string
	AvatarURL string
}

// Searcher finds accounts matching a partial login.
type Searcher interface {
	SearchUsers(ctx context.Context, term string, limit int) ([]Candidate, error)
	DisplayName(ctx context.Context, login string) (string, error)
}

// Confirmer is told when a suggestion is picked.
type Confirmer interface {
	Confirm(handle string)
}

// Snapshot is the suggestion panel state at one point in time.
type Snapshot struct {
	Input   string                  `json:"input"`
	Term    string                  `json:"term"`
	Entries []model.SuggestionEntry `json:"entries"`
	Open    bool                    `json:"open"`
	Pending bool                    `json:"pending"`
}

// Suggester drives the handle suggestion panel. A new Update aborts the
// search in flight and the results of a superseded search are never shown.
type Suggester struct {
	search        Searcher
	confirmer     Confirmer
	clock         clockwork.Clock
	delay         time.Duration
	limit         int
	enrichWorkers int
	log           logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	input    string
	term     string
	entries  []model.SuggestionEntry
	open     bool
	pending  bool
	gen      uint64
	timer    clockwork.Timer
	inflight context.CancelFunc
	closed   bool
}

// NewSuggester creates a Suggester backed by s.
func NewSuggester(s Searcher, opts ...SuggesterOption) *Suggester {
	sg := &Suggester{
		search:        s,
		clock:         clockwork.NewRealClock(),
		delay:         DefaultSuggestDelay,
		limit:         DefaultSuggestLimit,
		enrichWorkers: DefaultEnrichWorkers,
	}
	for _, opt := range opts {
		opt(sg)
	}
	if sg.log == nil {
		sg.log = logger.Get().Named("suggester")
	}
	sg.ctx, sg.cancel = context.WithCancel(context.Background())
	return sg
}

// Update records a new handle value and schedules a search for it.
func (s *Suggester) Update(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.input = handle
	s.term = validate.HandleLogin(handle)
	if s.closed || s.term == "" {
		return
	}

	s.pending = true
	gen, term := s.gen, s.term
	s.timer = s.clock.AfterFunc(s.delay, func() { s.run(gen, term) })
}

// Select applies the suggestion for login and returns the resulting handle.
func (s *Suggester) Select(login string) string {
	handle := validate.HandleFromLogin(login)

	s.mu.Lock()
	s.resetLocked()
	s.input = handle
	s.term = validate.HandleLogin(handle)
	confirmer := s.confirmer
	s.mu.Unlock()

	if confirmer != nil {
		confirmer.Confirm(handle)
	}
	return handle
}

// Dismiss closes the panel without touching the input.
func (s *Suggester) Dismiss() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

// Snapshot returns a copy of the panel state.
func (s *Suggester) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]model.SuggestionEntry, len(s.entries))
	copy(entries, s.entries)
	return Snapshot{
		Input:   s.input,
		Term:    s.term,
		Entries: entries,
		Open:    s.open,
		Pending: s.pending,
	}
}

// Close stops the timer and aborts any search in flight.
func (s *Suggester) Close() {
	s.mu.Lock()
	s.closed = true
	s.resetLocked()
	s.mu.Unlock()
	s.cancel()
}

// resetLocked invalidates everything scheduled or running for the old input.
func (s *Suggester) resetLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	s.gen++
	s.entries = nil
	s.open = false
	s.pending = false
}

func (s *Suggester) run(gen uint64, term string) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.timer = nil
	s.inflight = cancel
	s.mu.Unlock()

	entries, err := s.fetch(ctx, term)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case ctx.Err() != nil:
		metrics.RecordSuggestionSearch("cancelled")
		return
	case gen != s.gen:
		metrics.RecordSuggestionSearch("stale")
		return
	case err != nil:
		s.log.Warn(ctx, "suggestion search failed", logger.String("term", term), logger.Error(err))
		metrics.RecordSuggestionSearch("error")
		entries = nil
	default:
		metrics.RecordSuggestionSearch("ok")
	}
	s.inflight = nil
	s.entries = entries
	s.open = len(entries) > 0
	s.pending = false
}

// fetch searches for term and enriches every hit with its display name in
// parallel. A failed enrichment leaves the display name empty.
func (s *Suggester) fetch(ctx context.Context, term string) ([]model.SuggestionEntry, error) {
	candidates, err := s.search.SearchUsers(ctx, term, s.limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) > s.limit {
		candidates = candidates[:s.limit]
	}

	entries := make([]model.SuggestionEntry, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enrichWorkers)
	for i, c := range candidates {
		entries[i] = model.SuggestionEntry{
			Handle:             validate.HandleFromLogin(c.Login),
			AvatarThumbnailURL: c.AvatarURL,
		}
		g.Go(func() error {
			name, err := s.search.DisplayName(gctx, c.Login)
			if err != nil {
				s.log.Debug(gctx, "display name lookup failed", logger.String("login", c.Login), logger.Error(err))
				return nil
			}
			entries[i].DisplayName = name
			return nil
		})
	}
	_ = g.Wait()
	return entries, nil
}
