package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestLoggingMasksOTPMaterial(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "gettoken", nil, []string{"realm"}))

	ctx := SetCorrelationID(context.Background(), "cid-1")
	logger.InfoContext(ctx, "otp issued",
		"serial", "LSAE00012345",
		"otpval", "755224",
		"realm", "myrealm",
		"payload", `{"pin":"1234","user":"alice"}`,
	)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "LSAE00012345", got["serial"])
	assert.Equal(t, "***", got["otpval"])
	assert.Equal(t, "***", got["realm"])
	assert.JSONEq(t, `{"pin":"***","user":"alice"}`, got["payload"].(string))
	assert.Equal(t, "cid-1", got["_cID"])
	assert.Equal(t, "gettoken", got["service"])
	assert.Equal(t, "INFO", got["severity"])
}

func TestLoggingTraceAndBoundAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "gettoken", nil, nil)).With("pin", "1234", "serial", "LSAE00012345")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01},
		SpanID:     trace.SpanID{0x02},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	logger.WarnContext(ctx, "policy denied", "info", map[string]string{"pass": "1234755224", "realm": "myrealm"})

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "***", got["pin"])
	assert.Equal(t, "LSAE00012345", got["serial"])
	assert.Equal(t, map[string]any{"pass": "***", "realm": "myrealm"}, got["info"])
	assert.Equal(t, sc.TraceID().String(), got["trace_id"])
	assert.Equal(t, sc.SpanID().String(), got["span_id"])
	assert.NotContains(t, got, "_cID")
}

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Equal(t, "abc", GetCorrelationID(SetCorrelationID(context.Background(), "abc")))
}

func TestNewDisabledIsNoop(t *testing.T) {
	t.Parallel()

	ins, err := New(context.Background(), nil)
	require.NoError(t, err)

	_, span := ins.Tracer("test").Start(context.Background(), "span")
	span.End()
	assert.NoError(t, ins.Shutdown(context.Background()))
}
