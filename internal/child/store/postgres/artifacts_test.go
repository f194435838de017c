package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/child/models"
	id "guardian/pkg/domain"
)

func TestArtifactStore_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	a := models.Artifact{
		ChildID:       id.NewChildID(),
		InteractionID: id.NewInteractionID(),
		Category:      id.DataVoiceRecording,
		ContentType:   "audio/ogg",
		Content:       []byte{1, 2, 3},
		CreatedAt:     time.Now(),
	}
	mock.ExpectExec("INSERT INTO interaction_artifacts").
		WithArgs(a.ChildID.String(), a.InteractionID.String(), "voice_recording", "audio/ogg", []byte{1, 2, 3}, a.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewArtifactStore(db).Save(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArtifactStore_DeleteByCategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	childID, iid := id.NewChildID(), id.NewInteractionID()
	mock.ExpectExec("DELETE FROM interaction_artifacts WHERE child_id = \\$1 AND interaction_id = \\$2 AND category = ANY").
		WithArgs(childID.String(), iid.String(), "{\"voice_recording\"}").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM interaction_artifacts WHERE child_id = \\$1 AND interaction_id = \\$2$").
		WithArgs(childID.String(), iid.String()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	s := NewArtifactStore(db)
	require.NoError(t, s.Delete(context.Background(), childID, iid, []id.DataCategory{id.DataVoiceRecording}))
	require.NoError(t, s.Delete(context.Background(), childID, iid, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArtifactStore_ListByChild(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	childID, iid := id.NewChildID(), id.NewInteractionID()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"child_id", "interaction_id", "category", "content_type", "content", "created_at"}).
		AddRow(childID.String(), iid.String(), "interaction_text", "text/plain", []byte("hello"), at)
	mock.ExpectQuery("SELECT child_id, interaction_id").WithArgs(childID.String()).WillReturnRows(rows)

	got, err := NewArtifactStore(db).ListByChild(context.Background(), childID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, iid, got[0].InteractionID)
	assert.Equal(t, id.DataInteractionText, got[0].Category)
	assert.Equal(t, "hello", string(got[0].Content))
}
