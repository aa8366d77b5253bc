package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/pkg/metrics"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS ticket_outcomes (
	request_id       TEXT PRIMARY KEY,
	state            TEXT NOT NULL,
	ticket_url       TEXT NOT NULL DEFAULT '',
	public_id        TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT '',
	updated_at       TEXT NOT NULL,
	capture_data_url TEXT,
	capture_width    INTEGER NOT NULL DEFAULT 0,
	capture_height   INTEGER NOT NULL DEFAULT 0
)`

// SQLiteStore is a Store backed by a SQLite file.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (and creates when needed) the database at path. The
// special path ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; also keeps a ":memory:" database on a single connection.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, o model.TicketOutcome) error {
	if strings.TrimSpace(o.RequestID) == "" {
		return ErrMissingRequestID
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO ticket_outcomes (request_id, state, ticket_url, public_id, error, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id) DO UPDATE SET
	state = excluded.state,
	ticket_url = excluded.ticket_url,
	public_id = excluded.public_id,
	error = excluded.error,
	updated_at = excluded.updated_at`,
		o.RequestID, string(o.State), o.TicketURL, o.PublicID, o.Error, o.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("save outcome %s: %w", o.RequestID, err)
	}
	metrics.UpdateStoredOutcomes(s.Count(ctx))
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, requestID string) (model.TicketOutcome, error) {
	var (
		o       model.TicketOutcome
		state   string
		updated string
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT request_id, state, ticket_url, public_id, error, updated_at
FROM ticket_outcomes WHERE request_id = ?`, requestID,
	).Scan(&o.RequestID, &state, &o.TicketURL, &o.PublicID, &o.Error, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TicketOutcome{}, ErrNotFound
	}
	if err != nil {
		return model.TicketOutcome{}, fmt.Errorf("get outcome %s: %w", requestID, err)
	}
	o.State = model.TicketState(state)
	if t, perr := time.Parse(timeFormat, updated); perr == nil {
		o.UpdatedAt = t
	}
	return o, nil
}

func (s *SQLiteStore) SaveCapture(ctx context.Context, requestID string, img model.CapturedTicketImage) error {
	if strings.TrimSpace(requestID) == "" {
		return ErrMissingRequestID
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO ticket_outcomes (request_id, state, updated_at, capture_data_url, capture_width, capture_height)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id) DO UPDATE SET
	capture_data_url = excluded.capture_data_url,
	capture_width = excluded.capture_width,
	capture_height = excluded.capture_height`,
		requestID, string(model.TicketCapturing), time.Now().UTC().Format(timeFormat), img.DataURL, img.Width, img.Height,
	)
	if err != nil {
		return fmt.Errorf("save capture %s: %w", requestID, err)
	}
	return nil
}

func (s *SQLiteStore) Capture(ctx context.Context, requestID string) (model.CapturedTicketImage, error) {
	var (
		img     model.CapturedTicketImage
		dataURL sql.NullString
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT capture_data_url, capture_width, capture_height
FROM ticket_outcomes WHERE request_id = ?`, requestID,
	).Scan(&dataURL, &img.Width, &img.Height)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !dataURL.Valid) {
		return model.CapturedTicketImage{}, ErrNotFound
	}
	if err != nil {
		return model.CapturedTicketImage{}, fmt.Errorf("get capture %s: %w", requestID, err)
	}
	img.DataURL = dataURL.String
	return img, nil
}

func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticket_outcomes`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
