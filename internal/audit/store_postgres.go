package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"certledger/pkg/domain"
	"certledger/pkg/platform/sentinel"
)

// PostgresStore persists audit events through database/sql with the pq
// driver. The audit trail is a cold append-only path, so it stays on the
// plain driver while the registry's hot path uses pgx.
type PostgresStore struct {
	db *sql.DB
}

// PostgresSchema creates the audit table. Idempotent.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id          uuid        PRIMARY KEY,
    action      text        NOT NULL,
    actor       text        NOT NULL,
    entity_kind text        NOT NULL,
    entity_id   bigint      NOT NULL,
    request_id  text        NOT NULL DEFAULT '',
    client_ip   text        NOT NULL DEFAULT '',
    user_agent  text        NOT NULL DEFAULT '',
    occurred_at timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS audit_events_occurred_at_idx ON audit_events (occurred_at);
`

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies the audit schema.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events
		   (id, action, actor, entity_kind, entity_id, request_id, client_ip, user_agent, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, string(event.Action), event.Actor.String(), string(event.EntityKind),
		event.EntityID, event.RequestID, event.ClientIP, event.UserAgent, event.Timestamp)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			// Same event delivered twice; the first append won.
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, actor, entity_kind, entity_id, request_id, client_ip, user_agent, occurred_at
		 FROM audit_events ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e      Event
			action string
			actor  string
			kind   string
		)
		if err := rows.Scan(&e.ID, &action, &actor, &kind, &e.EntityID,
			&e.RequestID, &e.ClientIP, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = Action(action)
		e.Actor = domain.Address(actor)
		e.EntityKind = EntityKind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}
