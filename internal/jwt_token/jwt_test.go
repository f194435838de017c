package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)

func Test_GenerateParentToken(t *testing.T) {
	parentID := id.NewParentID()
	token, err := jwtService.GenerateParentToken(parentID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, KindParent, claims.Kind)
	assert.Equal(t, parentID.String(), claims.ParentID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateDeviceToken(t *testing.T) {
	childID := id.NewChildID()
	token, err := jwtService.GenerateDeviceToken("speaker-1", childID, time.Hour)
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, KindDevice, claims.Kind)
	assert.Equal(t, "speaker-1", claims.DeviceID)
	assert.Equal(t, childID.String(), claims.ChildID)
	assert.Empty(t, claims.ParentID)
}

func Test_GenerateDeviceToken_RequiresDeviceAndChild(t *testing.T) {
	_, err := jwtService.GenerateDeviceToken("", id.NewChildID(), time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = jwtService.GenerateDeviceToken("speaker-1", id.ChildID{}, time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_RejectsUnpairedDevice(t *testing.T) {
	token, err := jwtService.sign(Claims{Kind: KindDevice, DeviceID: "speaker-1"}, time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateParentToken(id.NewParentID(), -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token has expired")
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	other := NewJWTService("test-signing-key", "test-issuer", "other-audience")
	token, err := other.GenerateParentToken(id.NewParentID(), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
}

func Test_Adapter_MapsPrincipal(t *testing.T) {
	parentID := id.NewParentID()
	token, err := jwtService.GenerateParentToken(parentID, time.Hour)
	require.NoError(t, err)

	p, err := NewAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, KindParent, p.Kind)
	assert.Equal(t, parentID.String(), p.ParentID)
	assert.NotEmpty(t, p.JTI)
}
