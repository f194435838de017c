package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SAFETY_POLICY_JSON", `{}`)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.DeviceTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.Consent.CodeTTL)
	assert.Equal(t, 72*time.Hour, cfg.Consent.RequestTTL)
	assert.Equal(t, 5, cfg.Consent.MaxAttempts)
	assert.Equal(t, 13, cfg.Policy.ProtectionAgeThreshold)
	assert.Equal(t, 30, cfg.Retention.GraceDays)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnv_RequiresSafetyPolicy(t *testing.T) {
	t.Setenv("SAFETY_POLICY_JSON", "")
	t.Setenv("SAFETY_POLICY_PATH", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety policy")
}

func TestFromEnv_ParsesOverrides(t *testing.T) {
	t.Setenv("SAFETY_POLICY_PATH", "/etc/guardian/safety.json")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("CONSENT_CODE_TTL", "10m")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10*time.Minute, cfg.Consent.CodeTTL)
}

func TestFromEnv_RejectsMalformedValues(t *testing.T) {
	t.Setenv("SAFETY_POLICY_JSON", `{}`)
	t.Setenv("CONSENT_MAX_ATTEMPTS", "many")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONSENT_MAX_ATTEMPTS")
}

func TestFromEnv_RejectsNonPositiveDeviceTokenTTL(t *testing.T) {
	t.Setenv("SAFETY_POLICY_JSON", `{}`)
	t.Setenv("DEVICE_TOKEN_TTL", "0s")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEVICE_TOKEN_TTL")
}
