// Package postgres stores data registrations on database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"guardian/internal/policy"
	"guardian/internal/retention/models"
	id "guardian/pkg/domain"
	"guardian/pkg/platform/sentinel"
	txcontext "guardian/pkg/platform/tx"
)

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const columns = `id, child_id, subject_id, category, classification, collected_at,
	scheduled_deletion_at, status, attempts, last_error, deletion_requested_at, deleted_at, escalated_at,
	last_attempt_at`

// openStatuses must match models.Status.Open.
var openStatuses = pq.Array([]string{
	string(models.StatusScheduled),
	string(models.StatusDeletionRequested),
	string(models.StatusEscalated),
})

// Save upserts the registration. collected_at is never rewritten.
func (s *Store) Save(ctx context.Context, r *models.DataRegistration) error {
	query := `
		INSERT INTO data_registrations (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			scheduled_deletion_at = EXCLUDED.scheduled_deletion_at,
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			deletion_requested_at = EXCLUDED.deletion_requested_at,
			deleted_at = EXCLUDED.deleted_at,
			escalated_at = EXCLUDED.escalated_at,
			last_attempt_at = EXCLUDED.last_attempt_at
	`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID),
		uuid.UUID(r.ChildID),
		subjectArg(r.SubjectID),
		string(r.Category),
		string(r.Classification),
		r.CollectedAt,
		r.ScheduledDeletionAt,
		string(r.Status),
		r.Attempts,
		r.LastError,
		nullTime(r.DeletionRequestedAt),
		nullTime(r.DeletedAt),
		nullTime(r.EscalatedAt),
		nullTime(r.LastAttemptAt),
	)
	if err != nil {
		return fmt.Errorf("save registration: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, regID id.RegistrationID) (*models.DataRegistration, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+columns+` FROM data_registrations WHERE id = $1`, uuid.UUID(regID))
	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return r, nil
}

// ListDue returns open registrations scheduled at or before now that have
// not been attempted since now, never-attempted first, then least recently
// attempted. limit <= 0 means no limit.
func (s *Store) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.DataRegistration, error) {
	query := `SELECT ` + columns + ` FROM data_registrations
		WHERE status = ANY($1) AND scheduled_deletion_at <= $2
			AND (last_attempt_at IS NULL OR last_attempt_at < $2)
		ORDER BY last_attempt_at NULLS FIRST, scheduled_deletion_at, id`
	args := []any{openStatuses, now}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

func (s *Store) ListByChild(ctx context.Context, childID id.ChildID) ([]*models.DataRegistration, error) {
	return s.list(ctx, `SELECT `+columns+` FROM data_registrations
		WHERE child_id = $1 ORDER BY scheduled_deletion_at, id`, uuid.UUID(childID))
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*models.DataRegistration, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	var out []*models.DataRegistration
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.DataRegistration, error) {
	var (
		r                          models.DataRegistration
		regID, childID             uuid.UUID
		subject                    uuid.NullUUID
		category, class, status    string
		requested, deleted, escala pq.NullTime
		attempted                  pq.NullTime
	)
	if err := row.Scan(&regID, &childID, &subject, &category, &class, &r.CollectedAt,
		&r.ScheduledDeletionAt, &status, &r.Attempts, &r.LastError, &requested, &deleted, &escala,
		&attempted); err != nil {
		return nil, err
	}
	r.ID = id.RegistrationID(regID)
	r.ChildID = id.ChildID(childID)
	if subject.Valid {
		r.SubjectID = id.InteractionID(subject.UUID)
	}
	r.Category = id.DataCategory(category)
	r.Classification = policy.Classification(class)
	r.Status = models.Status(status)
	r.DeletionRequestedAt = timePtr(requested)
	r.DeletedAt = timePtr(deleted)
	r.EscalatedAt = timePtr(escala)
	r.LastAttemptAt = timePtr(attempted)
	return &r, nil
}

func subjectArg(s id.InteractionID) uuid.NullUUID {
	if s.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(s), Valid: true}
}

func nullTime(t *time.Time) pq.NullTime {
	if t == nil {
		return pq.NullTime{}
	}
	return pq.NullTime{Time: *t, Valid: true}
}

func timePtr(t pq.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
