// Package postgres implements the consent and relationship stores on
// database/sql. Both join a transaction carried in context by pkg/platform/tx,
// so a record change and its audit entry commit together.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"guardian/internal/consent/models"
	id "guardian/pkg/domain"
	"guardian/pkg/platform/sentinel"
	txcontext "guardian/pkg/platform/tx"
)

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func conn(ctx context.Context, db *sql.DB) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

type ConsentStore struct {
	db *sql.DB
}

func NewConsentStore(db *sql.DB) *ConsentStore {
	return &ConsentStore{db: db}
}

const consentColumns = `id, child_id, parent_id, category, status, verification_method,
	requested_at, granted_at, expires_at, revoked_at, denied_at, denial_reason, updated_at`

// Save upserts the record as it stands after a transition.
func (s *ConsentStore) Save(ctx context.Context, r *models.ConsentRecord) error {
	query := `
		INSERT INTO consent_records (` + consentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			verification_method = EXCLUDED.verification_method,
			granted_at = EXCLUDED.granted_at,
			expires_at = EXCLUDED.expires_at,
			revoked_at = EXCLUDED.revoked_at,
			denied_at = EXCLUDED.denied_at,
			denial_reason = EXCLUDED.denial_reason,
			updated_at = EXCLUDED.updated_at
	`
	_, err := conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(r.ID),
		uuid.UUID(r.ChildID),
		uuid.UUID(r.ParentID),
		string(r.Category),
		string(r.Status),
		string(r.VerificationMethod),
		r.RequestedAt,
		nullTime(r.GrantedAt),
		nullTime(r.ExpiresAt),
		nullTime(r.RevokedAt),
		nullTime(r.DeniedAt),
		r.DenialReason,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}

func (s *ConsentStore) FindByID(ctx context.Context, consentID id.ConsentID) (*models.ConsentRecord, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+consentColumns+` FROM consent_records WHERE id = $1`, uuid.UUID(consentID))
	r, err := scanConsent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consent %s: %w", consentID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return r, nil
}

// ListByChild returns the child's records oldest first.
func (s *ConsentStore) ListByChild(ctx context.Context, childID id.ChildID) ([]*models.ConsentRecord, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+consentColumns+` FROM consent_records WHERE child_id = $1 ORDER BY requested_at, id`,
		uuid.UUID(childID))
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var out []*models.ConsentRecord
	for rows.Next() {
		r, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConsent(row scanner) (*models.ConsentRecord, error) {
	var (
		r                              models.ConsentRecord
		consentID, childID, parentID   uuid.UUID
		category, status, method       string
		granted, expires, revoked, den pq.NullTime
	)
	if err := row.Scan(&consentID, &childID, &parentID, &category, &status, &method,
		&r.RequestedAt, &granted, &expires, &revoked, &den, &r.DenialReason, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ID = id.ConsentID(consentID)
	r.ChildID = id.ChildID(childID)
	r.ParentID = id.ParentID(parentID)
	r.Category = id.ConsentCategory(category)
	r.Status = models.Status(status)
	r.VerificationMethod = models.Method(method)
	r.GrantedAt = timePtr(granted)
	r.ExpiresAt = timePtr(expires)
	r.RevokedAt = timePtr(revoked)
	r.DeniedAt = timePtr(den)
	return &r, nil
}

type RelationshipStore struct {
	db *sql.DB
}

func NewRelationshipStore(db *sql.DB) *RelationshipStore {
	return &RelationshipStore{db: db}
}

const relationshipColumns = `id, parent_id, child_id, type, status, method, reason, created_at, verified_at, rejected_at`

// Create inserts a new link. The (parent, child) unique constraint turns a
// duplicate into sentinel.ErrConflict.
func (s *RelationshipStore) Create(ctx context.Context, r *models.Relationship) error {
	res, err := conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO relationships (`+relationshipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (parent_id, child_id) DO NOTHING
	`,
		uuid.UUID(r.ID), uuid.UUID(r.ParentID), uuid.UUID(r.ChildID), string(r.Type), string(r.Status),
		string(r.Method), r.Reason, r.CreatedAt, nullTime(r.VerifiedAt), nullTime(r.RejectedAt))
	if err != nil {
		return fmt.Errorf("create relationship: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("relationship %s/%s: %w", r.ParentID, r.ChildID, sentinel.ErrConflict)
	}
	return nil
}

func (s *RelationshipStore) Save(ctx context.Context, r *models.Relationship) error {
	res, err := conn(ctx, s.db).ExecContext(ctx, `
		UPDATE relationships
		SET status = $2, method = $3, reason = $4, verified_at = $5, rejected_at = $6
		WHERE id = $1
	`, uuid.UUID(r.ID), string(r.Status), string(r.Method), r.Reason, nullTime(r.VerifiedAt), nullTime(r.RejectedAt))
	if err != nil {
		return fmt.Errorf("save relationship: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("relationship %s: %w", r.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *RelationshipStore) FindByID(ctx context.Context, relID id.RelationshipID) (*models.Relationship, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE id = $1`, uuid.UUID(relID))
	return s.one(row, relID.String())
}

func (s *RelationshipStore) FindByParentAndChild(ctx context.Context, parentID id.ParentID, childID id.ChildID) (*models.Relationship, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE parent_id = $1 AND child_id = $2`,
		uuid.UUID(parentID), uuid.UUID(childID))
	return s.one(row, parentID.String()+"/"+childID.String())
}

func (s *RelationshipStore) one(row *sql.Row, key string) (*models.Relationship, error) {
	r, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("relationship %s: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find relationship: %w", err)
	}
	return r, nil
}

func (s *RelationshipStore) ListByChild(ctx context.Context, childID id.ChildID) ([]*models.Relationship, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE child_id = $1 ORDER BY created_at, id`,
		uuid.UUID(childID))
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	var out []*models.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relationships: %w", err)
	}
	return out, nil
}

func scanRelationship(row scanner) (*models.Relationship, error) {
	var (
		r                        models.Relationship
		relID, parentID, childID uuid.UUID
		typ, status, method      string
		verified, rejected       pq.NullTime
	)
	if err := row.Scan(&relID, &parentID, &childID, &typ, &status, &method, &r.Reason,
		&r.CreatedAt, &verified, &rejected); err != nil {
		return nil, err
	}
	r.ID = id.RelationshipID(relID)
	r.ParentID = id.ParentID(parentID)
	r.ChildID = id.ChildID(childID)
	r.Type = models.RelationshipType(typ)
	r.Status = models.RelationshipStatus(status)
	r.Method = models.Method(method)
	r.VerifiedAt = timePtr(verified)
	r.RejectedAt = timePtr(rejected)
	return &r, nil
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
