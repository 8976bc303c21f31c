// Package audit keeps a trail of mutating API requests made by
// authenticated users. Reads are never recorded; anonymous requests
// carry no actor and are skipped.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event is one recorded mutating request.
type Event struct {
	ID         int64     `json:"id"`
	Actor      string    `json:"actor"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	RequestID  string    `json:"request_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Store persists audit events in PostgreSQL. The audit_events table is
// created by the schema migrations.
type Store struct {
	db *sql.DB
}

// NewStore creates a database-backed audit recorder.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts one event. The occurred_at timestamp is assigned by
// the database when the event carries a zero time.
func (s *Store) Record(ctx context.Context, event Event) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (actor, method, path, status, request_id, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Actor, event.Method, event.Path, event.Status, event.RequestID, occurred,
	)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

// Recent returns the most recent events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor, method, path, status, request_id, occurred_at
		 FROM audit_events
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Actor, &e.Method, &e.Path, &e.Status, &e.RequestID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
