package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/conftix/internal/domain/lookup"
	"github.com/okian/conftix/pkg/logger"
	"github.com/okian/conftix/pkg/metrics"
)

// Store holds live sessions keyed by cookie value.
type Store struct {
	lookuper lookup.Lookuper
	searcher lookup.Searcher

	ttl           time.Duration
	clock         clockwork.Clock
	cookieName    string
	secure        bool
	checkerOpts   []lookup.CheckerOption
	suggesterOpts []lookup.SuggesterOption
	log           logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a Store whose sessions check handles with l and search
// suggestions with s.
func NewStore(l lookup.Lookuper, s lookup.Searcher, opts ...Option) *Store {
	st := &Store{
		lookuper:   l,
		searcher:   s,
		ttl:        DefaultTTL,
		clock:      clockwork.NewRealClock(),
		cookieName: DefaultCookieName,
		log:        logger.Get().Named("session"),
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Create starts a new session with its own checker and suggester. Selecting a
// suggestion confirms the handle on the same session's checker.
func (st *Store) Create() *Session {
	checker := lookup.NewChecker(st.lookuper, st.checkerOpts...)
	sOpts := append([]lookup.SuggesterOption{}, st.suggesterOpts...)
	sOpts = append(sOpts, lookup.WithConfirmer(checker))

	s := &Session{
		ID:        uuid.NewString(),
		Checker:   checker,
		Suggester: lookup.NewSuggester(st.searcher, sOpts...),
		lastSeen:  st.clock.Now(),
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	n := len(st.sessions)
	st.mu.Unlock()

	metrics.UpdateActiveSessions(n)
	return s
}

// Get returns the session for id and marks it as used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.touch(st.clock.Now())
	}
	return s, ok
}

// Lookup returns the session named by r's cookie, if it is still live.
func (st *Store) Lookup(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(st.cookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return st.Get(c.Value)
}

// FromRequest returns the session named by r's cookie, creating one and
// setting the cookie on w when there is none.
func (st *Store) FromRequest(w http.ResponseWriter, r *http.Request) *Session {
	if s, ok := st.Lookup(r); ok {
		return s
	}
	s := st.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     st.cookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep() int {
	now := st.clock.Now()

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	metrics.UpdateActiveSessions(n)
	return len(expired)
}

// Run sweeps expired sessions every TTL/2 until ctx is done.
func (st *Store) Run(ctx context.Context) {
	ticker := st.clock.NewTicker(st.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := st.Sweep(); n > 0 {
				st.log.Debug(ctx, "expired sessions removed", logger.Int("count", n))
			}
		}
	}
}

// Close stops every session's timers and forgets them.
func (st *Store) Close() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range all {
		s.close()
	}
	metrics.UpdateActiveSessions(0)
}
