package repository

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/pkg/metrics"
)

const defaultMaxEntries = 10000

type memoryEntry struct {
	outcome model.TicketOutcome
	capture *model.CapturedTicketImage
	order   *list.Element
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	order      *list.List
	maxEntries int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		order:      list.New(),
		maxEntries: defaultMaxEntries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Save(ctx context.Context, o model.TicketOutcome) error {
	if strings.TrimSpace(o.RequestID) == "" {
		return ErrMissingRequestID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(o.RequestID).outcome = o
	metrics.UpdateStoredOutcomes(len(s.entries))
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, requestID string) (model.TicketOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[requestID]
	if !ok || e.outcome.RequestID == "" {
		return model.TicketOutcome{}, ErrNotFound
	}
	return e.outcome, nil
}

func (s *MemoryStore) SaveCapture(ctx context.Context, requestID string, img model.CapturedTicketImage) error {
	if strings.TrimSpace(requestID) == "" {
		return ErrMissingRequestID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(requestID).capture = &img
	return nil
}

func (s *MemoryStore) Capture(ctx context.Context, requestID string) (model.CapturedTicketImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[requestID]
	if !ok || e.capture == nil {
		return model.CapturedTicketImage{}, ErrNotFound
	}
	return *e.capture, nil
}

func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }

// entryLocked returns the entry for id, creating it and evicting the oldest
// entry when full. Must be called with s.mu held.
func (s *MemoryStore) entryLocked(id string) *memoryEntry {
	if e, ok := s.entries[id]; ok {
		return e
	}
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		if front := s.order.Front(); front != nil {
			s.order.Remove(front)
			delete(s.entries, front.Value.(string))
		}
	}
	e := &memoryEntry{order: s.order.PushBack(id)}
	s.entries[id] = e
	return e
}
