// Package repository stores ticket outcomes so the ticket screen can follow
// a submission's pipeline.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/conftix/internal/domain/model"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Store keeps one outcome per request id, plus an optional captured ticket.
type Store interface {
	// Save inserts or replaces the outcome for o.RequestID. A kept capture
	// is not affected.
	Save(ctx context.Context, o model.TicketOutcome) error

	// Get returns ErrNotFound for an unknown request id.
	Get(ctx context.Context, requestID string) (model.TicketOutcome, error)

	// SaveCapture keeps the rendered ticket for later download.
	SaveCapture(ctx context.Context, requestID string, img model.CapturedTicketImage) error

	// Capture returns ErrNotFound when nothing was kept.
	Capture(ctx context.Context, requestID string) (model.CapturedTicketImage, error)

	// Count returns the number of stored outcomes.
	Count(ctx context.Context) int

	Close() error
}

// Open returns the store selected by driver.
func Open(driver, path string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(opts...), nil
	case DriverSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
