package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "test"})

	ctx := l.WithContext(context.Background())
	ctx = SetSourceID(ctx, "src-1")
	ctx = SetSyncID(ctx, "sync-1")

	CtxInfo(ctx, "synced %d items", 3)

	line := decodeLine(t, &buf)
	assert.Equal(t, "synced 3 items", line["message"])
	assert.Equal(t, "src-1", line[FieldSourceID])
	assert.Equal(t, "sync-1", line[FieldSyncID])
	assert.Equal(t, "test", line["service"])
	assert.Equal(t, "src-1", FieldString(ctx, FieldSourceID))
}

func TestEntryAddsMetricFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: "test"})
	ctx := SetItemID(l.WithContext(context.Background()), "item-9")

	With(Fields{FieldCount: 5}).WithDuration(12).Info(ctx, "done")

	line := decodeLine(t, &buf)
	assert.Equal(t, float64(5), line[FieldCount])
	assert.Equal(t, float64(12), line[FieldDurationMs])
	assert.Equal(t, "item-9", line[FieldItemID])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
}

func TestSetDefaultLoggerIgnoresNil(t *testing.T) {
	before := GetDefault()
	SetDefaultLogger(nil)
	assert.Same(t, before, GetDefault())
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Format: "text", Output: &buf, ServiceName: "test"})

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.WithField(FieldSourceType, "notion").Warn("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "source_type=notion")
}

func TestEnsureKeepsAttachedLogger(t *testing.T) {
	var a, b bytes.Buffer
	first := New(&Config{Level: "info", Format: "json", Output: &a, ServiceName: "first"})
	second := New(&Config{Level: "info", Format: "json", Output: &b, ServiceName: "second"})

	ctx := Ensure(context.Background(), first)
	assert.True(t, Attached(ctx))
	assert.Same(t, first, FromContext(ctx))

	ctx = Ensure(ctx, second)
	assert.Same(t, first, FromContext(ctx))
	assert.False(t, Attached(context.Background()))
}
