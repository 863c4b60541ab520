package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	require.NoError(t, Setup(Config{}))
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "broker.GetPortfolio")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.False(t, span.IsRecording())
	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
}

func TestEnabledTracingCarriesIDs(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Setup(Config{Enabled: true, Output: &out}))
	t.Cleanup(func() { _ = Setup(Config{}) })

	ctx, span := StartSpan(context.Background(), "broker.GetAccountBalance")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Equal(t, span.SpanContext().SpanID().String(), spanID)

	_, child := StartSpan(ctx, "http.GET")
	assert.Equal(t, traceID, child.SpanContext().TraceID().String())
	child.End()
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.False(t, Enabled())
	assert.Contains(t, out.String(), `"Name":"broker.GetAccountBalance"`)
	assert.Contains(t, out.String(), `"Name":"http.GET"`)
	assert.Contains(t, out.String(), ServiceName)
}

func TestSetupReplacesPipeline(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, Setup(Config{Enabled: true, Output: &first, Service: "first"}))
	_, span := StartSpan(context.Background(), "one")
	span.End()

	require.NoError(t, Setup(Config{Enabled: true, Output: &second, Service: "second"}))
	_, span = StartSpan(context.Background(), "two")
	span.End()
	require.NoError(t, Shutdown(context.Background()))

	assert.Contains(t, first.String(), `"Name":"one"`)
	assert.NotContains(t, first.String(), `"Name":"two"`)
	assert.Contains(t, second.String(), `"Name":"two"`)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_TRACING_ENABLED", "false")
	assert.False(t, ConfigFromEnv().Enabled)

	t.Setenv("LOG_TRACING_ENABLED", "TRUE")
	assert.True(t, ConfigFromEnv().Enabled)

	t.Setenv("LOG_TRACING_ENABLED", "false")
	require.NoError(t, Init())
	assert.False(t, Enabled())
}
