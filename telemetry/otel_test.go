package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"policyassist-backend/config"
)

func TestParseHeaders(t *testing.T) {
	h := ParseHeaders("Authorization=Bearer abc, x-team = policy ,broken,=orphan")
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer abc",
		"x-team":        "policy",
	}, h)
	assert.Empty(t, ParseHeaders(""))
}

func TestSignalURL(t *testing.T) {
	tests := []struct {
		endpoint, signal, want string
	}{
		{"http://collector:4318", "traces", "http://collector:4318/v1/traces"},
		{"http://collector:4318/", "logs", "http://collector:4318/v1/logs"},
		{"https://otlp.example.com/v1/traces", "traces", "https://otlp.example.com/v1/traces"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SignalURL(tt.endpoint, tt.signal), tt.endpoint)
	}
}

func TestResource(t *testing.T) {
	res, err := Resource(config.OTelConfig{
		ServiceName:    "policyassist",
		ServiceVersion: "1.2.0",
		Environment:    "production",
		InstanceID:     "node-3",
	})
	require.NoError(t, err)

	got := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		got[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "policyassist", got["service.name"])
	assert.Equal(t, "1.2.0", got["service.version"])
	assert.Equal(t, "production", got["deployment.environment"])
	assert.Equal(t, "node-3", got["service.instance.id"])
}

func TestSampler(t *testing.T) {
	assert.Contains(t, Sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, Sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestSetup_DisabledReturnsNil(t *testing.T) {
	tel, err := Setup(context.Background(), config.OTelConfig{})
	require.NoError(t, err)
	assert.Nil(t, tel)
	assert.NoError(t, tel.Shutdown(context.Background()))
}
