package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/httputil"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newRecord(t *testing.T) *ConsentRecord {
	t.Helper()
	r, err := NewConsentRecord(id.NewChildID(), id.NewParentID(), id.ConsentVoiceRecording, t0)
	require.NoError(t, err)
	return r
}

func TestConsentRecord_StateMachine(t *testing.T) {
	r := newRecord(t)
	assert.Equal(t, StatusRequested, r.Status)

	err := r.Grant(t0, 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "cannot skip verification")

	require.NoError(t, r.StartVerification(MethodEmail, t0))
	require.NoError(t, r.StartVerification(MethodSMS, t0.Add(time.Minute)), "re-initiation keeps pending")
	assert.Equal(t, MethodSMS, r.VerificationMethod)

	require.NoError(t, r.Grant(t0.Add(2*time.Minute), 0))
	assert.True(t, r.IsAuthorizing(t0.Add(24*365*time.Hour)))

	assert.Error(t, r.Deny(DenialParentDeclined, t0))
	require.NoError(t, r.Revoke(t0.Add(time.Hour)))
	assert.False(t, r.IsAuthorizing(t0.Add(time.Hour)))
	assert.Error(t, r.Revoke(t0.Add(time.Hour)), "revoked is terminal")
	assert.Error(t, r.StartVerification(MethodEmail, t0))
}

func TestConsentRecord_ExpiryAndRequestTTL(t *testing.T) {
	r := newRecord(t)
	assert.False(t, r.RequestExpired(t0.Add(time.Hour), 72*time.Hour))
	assert.True(t, r.RequestExpired(t0.Add(72*time.Hour), 72*time.Hour))

	require.NoError(t, r.StartVerification(MethodEmail, t0))
	require.NoError(t, r.Grant(t0, 30*24*time.Hour))
	assert.True(t, r.IsAuthorizing(t0.Add(29*24*time.Hour)))
	assert.False(t, r.IsAuthorizing(t0.Add(30*24*time.Hour)))
	assert.False(t, r.RequestExpired(t0.Add(100*time.Hour), 72*time.Hour), "granted is not an open request")
}

func TestIsAuthorized(t *testing.T) {
	grant := func(at time.Time) *ConsentRecord {
		r := newRecord(t)
		require.NoError(t, r.StartVerification(MethodEmail, at))
		require.NoError(t, r.Grant(at, 0))
		return r
	}

	t.Run("no records", func(t *testing.T) {
		assert.False(t, IsAuthorized(nil, t0))
	})
	t.Run("single grant", func(t *testing.T) {
		assert.True(t, IsAuthorized([]*ConsentRecord{grant(t0)}, t0))
	})
	t.Run("re-grant after revoke", func(t *testing.T) {
		old := grant(t0)
		require.NoError(t, old.Revoke(t0.Add(time.Hour)))
		assert.True(t, IsAuthorized([]*ConsentRecord{old, grant(t0.Add(2 * time.Hour))}, t0.Add(3*time.Hour)))
	})
	t.Run("revoke after grant wins", func(t *testing.T) {
		old := grant(t0.Add(2 * time.Hour))
		revoked := grant(t0)
		require.NoError(t, revoked.Revoke(t0.Add(3*time.Hour)))
		assert.False(t, IsAuthorized([]*ConsentRecord{old, revoked}, t0.Add(4*time.Hour)))
	})
	t.Run("two grants is ambiguous", func(t *testing.T) {
		assert.False(t, IsAuthorized([]*ConsentRecord{grant(t0), grant(t0)}, t0))
	})
}

func TestRelationship_StateMachine(t *testing.T) {
	r, err := NewRelationship(id.NewParentID(), id.NewChildID(), RelationshipLegalGuardian, t0)
	require.NoError(t, err)
	assert.False(t, r.IsVerified())
	require.NoError(t, r.Verify(MethodEmail, t0))
	assert.True(t, r.IsVerified())
	assert.Error(t, r.Reject("late", t0))

	_, err = NewRelationship(id.NewParentID(), id.NewChildID(), "neighbour", t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestConsentRequiredError(t *testing.T) {
	childID := id.NewChildID()
	var err error = &ConsentRequiredError{ChildID: childID, Missing: []id.ConsentCategory{id.ConsentVoiceRecording, id.ConsentDataCollection}}

	assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingConsent))
	assert.Contains(t, err.Error(), "data_collection, voice_recording")

	var d httputil.Detailer
	require.ErrorAs(t, err, &d)
	assert.Equal(t, []string{"data_collection", "voice_recording"}, d.Details()["missing_categories"])
}

func TestRelationshipNotVerifiedError(t *testing.T) {
	err := &RelationshipNotVerifiedError{ParentID: id.NewParentID(), ChildID: id.NewChildID(), Status: RelationshipPending}
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRelationshipNotVerified))
	assert.Contains(t, err.Error(), "pending")
	assert.Equal(t, "none", (&RelationshipNotVerifiedError{}).Details()["relationship_status"])
}
