package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/consent/models"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/retry"
)

func fastRetry() GatewayOption {
	return WithRetryPolicy(retry.Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxAttempts:     3,
		MaxElapsed:      time.Second,
	})
}

func msg() Message {
	return Message{
		Method:      models.MethodEmail,
		Destination: "parent@example.com",
		Code:        "123456",
		Purpose:     models.PurposeConsent,
		ExpiresAt:   time.Now().Add(15 * time.Minute),
	}
}

func TestGateway_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var body deliveryRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "parent@example.com", body.To)
		assert.Equal(t, "verification_consent", body.Template)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g := NewGateway(models.MethodEmail, srv.URL, "key", fastRetry())
	require.NoError(t, g.Send(context.Background(), msg()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGateway_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewGateway(models.MethodSMS, srv.URL, "", fastRetry()).Send(context.Background(), msg())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeVerificationDeliveryFailed))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGateway_ExhaustedRetriesAreDeliveryFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewGateway(models.MethodEmail, srv.URL, "", fastRetry()).Send(context.Background(), msg())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeVerificationDeliveryFailed))
	assert.True(t, dErrors.Retryable(err))
}

func TestRouter_UnknownMethod(t *testing.T) {
	r := NewRouter(map[models.Method]Sender{models.MethodEmail: NewRecorder()})
	m := msg()
	m.Method = models.MethodSMS
	assert.True(t, dErrors.HasCode(r.Send(context.Background(), m), dErrors.CodeVerificationDeliveryFailed))
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	require.NoError(t, rec.Send(context.Background(), msg()))
	got, ok := rec.Last("parent@example.com")
	require.True(t, ok)
	assert.Equal(t, "123456", got.Code)

	rec.FailWith(errors.New("smtp down"))
	assert.True(t, dErrors.HasCode(rec.Send(context.Background(), msg()), dErrors.CodeVerificationDeliveryFailed))
	assert.Equal(t, 1, rec.Count())
}

func TestValidateDestination(t *testing.T) {
	tests := []struct {
		method models.Method
		dest   string
		ok     bool
	}{
		{models.MethodEmail, "parent@example.com", true},
		{models.MethodEmail, "not-an-email", false},
		{models.MethodSMS, "+447700900123", true},
		{models.MethodSMS, "07700900123", false},
		{models.MethodStrongIdentity, "anything", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.method)+"/"+tt.dest, func(t *testing.T) {
			err := ValidateDestination(tt.method, tt.dest)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			}
		})
	}
}
