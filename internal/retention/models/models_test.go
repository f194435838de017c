package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/policy"
	id "guardian/pkg/domain"
)

var collected = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func newReg(t *testing.T) *DataRegistration {
	t.Helper()
	r, err := NewRegistration(id.NewChildID(), id.NewInteractionID(), id.DataVoiceRecording, policy.ClassProtectedChild, collected, 90*24*time.Hour)
	require.NoError(t, err)
	return r
}

func TestNewRegistrationSchedulesFromCollection(t *testing.T) {
	r := newReg(t)
	assert.Equal(t, collected.Add(90*24*time.Hour), r.ScheduledDeletionAt)
	assert.Equal(t, StatusScheduled, r.Status)
	assert.False(t, r.IsProfile())

	_, err := NewRegistration(id.NewChildID(), id.InteractionID{}, "cookies", policy.ClassMinor, collected, time.Hour)
	assert.Error(t, err)
}

func TestDueAndOverdue(t *testing.T) {
	r := newReg(t)
	grace := 30 * 24 * time.Hour

	assert.False(t, r.Due(r.ScheduledDeletionAt.Add(-time.Nanosecond)))
	assert.True(t, r.Due(r.ScheduledDeletionAt))
	assert.False(t, r.Overdue(r.ScheduledDeletionAt.Add(grace), grace))
	assert.True(t, r.Overdue(r.ScheduledDeletionAt.Add(grace+time.Second), grace))

	require.NoError(t, r.MarkDeleted(r.ScheduledDeletionAt))
	assert.False(t, r.Due(r.ScheduledDeletionAt.Add(grace*2)))
	assert.Error(t, r.MarkDeleted(r.ScheduledDeletionAt), "deleting twice")
}

func TestRescheduleNeverShortens(t *testing.T) {
	r := newReg(t)
	original := r.ScheduledDeletionAt

	assert.False(t, r.Reschedule(original.Add(-24*time.Hour)))
	assert.Equal(t, original, r.ScheduledDeletionAt)

	assert.True(t, r.Reschedule(original.Add(24*time.Hour)))
	assert.Equal(t, original.Add(24*time.Hour), r.ScheduledDeletionAt)

	r.MarkDeletionRequested(original)
	assert.False(t, r.Reschedule(original.Add(48*time.Hour)), "a requested deletion is not postponed")
}

func TestFailureAndEscalation(t *testing.T) {
	r := newReg(t)
	r.MarkDeletionRequested(r.ScheduledDeletionAt)
	r.MarkFailed(errors.New("blob store down"))
	assert.Equal(t, 1, r.Attempts)
	assert.Equal(t, "blob store down", r.LastError)

	assert.True(t, r.Escalate(r.ScheduledDeletionAt))
	assert.False(t, r.Escalate(r.ScheduledDeletionAt), "escalated once")
	assert.True(t, r.Status.Open(), "escalation keeps the obligation open")

	require.NoError(t, r.MarkDeleted(r.ScheduledDeletionAt))
	assert.Empty(t, r.LastError)
}
