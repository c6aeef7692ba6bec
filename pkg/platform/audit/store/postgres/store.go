package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "screener/pkg/platform/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS screening_audit (
	id                 UUID PRIMARY KEY,
	category           TEXT NOT NULL,
	action             TEXT NOT NULL,
	occurred_at        TIMESTAMPTZ NOT NULL,
	subject            TEXT NOT NULL DEFAULT '',
	reason             TEXT NOT NULL DEFAULT '',
	query              TEXT NOT NULL DEFAULT '',
	total_hits         INTEGER NOT NULL DEFAULT 0,
	failed_sources     TEXT[] NOT NULL DEFAULT '{}',
	challenged_sources TEXT[] NOT NULL DEFAULT '{}',
	request_id         TEXT NOT NULL DEFAULT '',
	client_ip          TEXT NOT NULL DEFAULT '',
	client_agent       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS screening_audit_occurred_at_idx ON screening_audit (occurred_at DESC);
`

// Store implements audit.Store on a screening_audit table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append inserts one audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO screening_audit (
			id, category, action, occurred_at, subject, reason,
			query, total_hits, failed_sources, challenged_sources,
			request_id, client_ip, client_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		event.Action,
		event.Timestamp,
		event.Subject,
		event.Reason,
		event.Query,
		event.TotalHits,
		pq.Array(nonNil(event.FailedSources)),
		pq.Array(nonNil(event.ChallengedSources)),
		event.RequestID,
		event.ClientIP,
		event.ClientAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, action, occurred_at, subject, reason,
			   query, total_hits, failed_sources, challenged_sources,
			   request_id, client_ip, client_agent
		FROM screening_audit
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
		)
		if err := rows.Scan(
			&category, &e.Action, &e.Timestamp, &e.Subject, &e.Reason,
			&e.Query, &e.TotalHits, pq.Array(&e.FailedSources), pq.Array(&e.ChallengedSources),
			&e.RequestID, &e.ClientIP, &e.ClientAgent,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
