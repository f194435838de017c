package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "guardian/pkg/domain"
	audit "guardian/pkg/platform/audit"
)

func TestStore_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db)
	childID := id.NewChildID()
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(sqlmock.AnyArg(), "compliance", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"parent", "consent_checked", "voice_recording", "denied", "missing_consent", "", "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Append(context.Background(), audit.Event{
		Category:        audit.CategoryCompliance,
		Timestamp:       time.Now(),
		ChildID:         childID,
		Actor:           "parent",
		Action:          string(audit.ActionConsentChecked),
		ConsentCategory: "voice_recording",
		Decision:        audit.DecisionDenied,
		Reason:          "missing_consent",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendPropagatesFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_events").WillReturnError(errors.New("connection reset"))

	err = New(db).Append(context.Background(), audit.Event{Action: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert audit event")
}

func TestStore_ListByChild(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	childID := id.NewChildID()
	eventID := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "category", "timestamp", "child_id", "parent_id", "actor", "action",
		"consent_category", "decision", "reason", "request_id", "client_ip", "user_agent", "severity",
	}).AddRow(eventID.String(), "compliance", now, uuid.UUID(childID).String(), nil, "device", "consent_checked",
		"data_collection", "allowed", "", "req-1", "10.0.0.1", "", "")
	mock.ExpectQuery("SELECT (.+) FROM audit_events").WithArgs(uuid.UUID(childID)).WillReturnRows(rows)

	events, err := New(db).ListByChild(context.Background(), childID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, childID, events[0].ChildID)
	assert.True(t, events[0].ParentID.IsNil())
	assert.Equal(t, "req-1", events[0].RequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}
