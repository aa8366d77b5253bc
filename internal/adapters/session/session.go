// Package session keeps per-browser form state: the live handle feedback and
// the submission record shared between the form and ticket screens.
package session

import (
	"sync"
	"time"

	"github.com/okian/conftix/internal/domain/lookup"
	"github.com/okian/conftix/internal/domain/model"
)

// Session is one visitor's form state. It implements submission.Slot.
type Session struct {
	ID        string
	Checker   *lookup.Checker
	Suggester *lookup.Suggester

	mu       sync.Mutex
	record   *model.SubmissionRecord
	avatar   *model.Avatar
	lastSeen time.Time
}

// SetRecord stashes the accepted submission for the ticket screen.
func (s *Session) SetRecord(rec model.SubmissionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = &rec
}

// Record returns the stashed submission, if any.
func (s *Session) Record() (model.SubmissionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return model.SubmissionRecord{}, false
	}
	return *s.record, true
}

// ClearRecord drops the stashed submission. The form screen does this on
// every fresh visit.
func (s *Session) ClearRecord() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
}

// SetAvatar keeps the compressed avatar between form renders. A nil avatar
// removes it.
func (s *Session) SetAvatar(a *model.Avatar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avatar = a
}

// Avatar returns the kept avatar or nil.
func (s *Session) Avatar() *model.Avatar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avatar
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) close() {
	s.Suggester.Close()
	s.Checker.Close()
}
