package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "guardian/pkg/domain"
	audit "guardian/pkg/platform/audit"
	txcontext "guardian/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. Rows are only ever
// inserted; the compliance trail outlives the child data it describes.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts an audit event. Duplicate IDs are ignored so redelivery is safe.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, child_id, parent_id, actor, action,
			consent_category, decision, reason, request_id, client_ip, user_agent, severity
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		nullableUUID(uuid.UUID(event.ChildID)),
		nullableUUID(uuid.UUID(event.ParentID)),
		event.Actor,
		event.Action,
		event.ConsentCategory,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.UserAgent,
		string(event.Severity),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByChild returns events for a child, oldest first.
func (s *Store) ListByChild(ctx context.Context, childID id.ChildID) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, child_id, parent_id, actor, action,
			   consent_category, decision, reason, request_id, client_ip, user_agent, severity
		FROM audit_events
		WHERE child_id = $1
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(childID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e                 audit.Event
			category          string
			severity          string
			childIDv, parentv uuid.NullUUID
		)
		if err := rows.Scan(
			&e.ID, &category, &e.Timestamp, &childIDv, &parentv, &e.Actor, &e.Action,
			&e.ConsentCategory, &e.Decision, &e.Reason, &e.RequestID, &e.ClientIP, &e.UserAgent, &severity,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Severity = audit.Severity(severity)
		if childIDv.Valid {
			e.ChildID = id.ChildID(childIDv.UUID)
		}
		if parentv.Valid {
			e.ParentID = id.ParentID(parentv.UUID)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullableUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
