package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"guardian/internal/child/models"
	id "guardian/pkg/domain"
)

// ArtifactStore keeps interaction content in the interaction_artifacts table.
type ArtifactStore struct {
	db *sql.DB
}

func NewArtifactStore(db *sql.DB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

// Save upserts one artifact. Re-saving the same (interaction, category) after
// a retried request replaces the content.
func (s *ArtifactStore) Save(ctx context.Context, a models.Artifact) error {
	query := `
		INSERT INTO interaction_artifacts (child_id, interaction_id, category, content_type, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (child_id, interaction_id, category) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			content = EXCLUDED.content
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ChildID), uuid.UUID(a.InteractionID), string(a.Category), a.ContentType, a.Content, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// Delete removes categories of one interaction; an empty list removes all.
func (s *ArtifactStore) Delete(ctx context.Context, childID id.ChildID, interactionID id.InteractionID, categories []id.DataCategory) error {
	var err error
	if len(categories) == 0 {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM interaction_artifacts WHERE child_id = $1 AND interaction_id = $2`,
			uuid.UUID(childID), uuid.UUID(interactionID))
	} else {
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = string(c)
		}
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM interaction_artifacts WHERE child_id = $1 AND interaction_id = $2 AND category = ANY($3)`,
			uuid.UUID(childID), uuid.UUID(interactionID), pq.Array(names))
	}
	if err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}
	return nil
}

func (s *ArtifactStore) DeleteChild(ctx context.Context, childID id.ChildID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM interaction_artifacts WHERE child_id = $1`, uuid.UUID(childID)); err != nil {
		return fmt.Errorf("delete child artifacts: %w", err)
	}
	return nil
}

func (s *ArtifactStore) ListByChild(ctx context.Context, childID id.ChildID) ([]models.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT child_id, interaction_id, category, content_type, content, created_at
		FROM interaction_artifacts
		WHERE child_id = $1
		ORDER BY created_at, interaction_id, category
	`, uuid.UUID(childID))
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []models.Artifact
	for rows.Next() {
		var (
			a             models.Artifact
			child, interc uuid.UUID
			category      string
		)
		if err := rows.Scan(&child, &interc, &category, &a.ContentType, &a.Content, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.ChildID = id.ChildID(child)
		a.InteractionID = id.InteractionID(interc)
		a.Category = id.DataCategory(category)
		out = append(out, a)
	}
	return out, rows.Err()
}
