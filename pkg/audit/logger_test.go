package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf)

	err := l.Record(context.Background(), EventRouting, "route_call", Event{
		TenantID: "t-1",
		CallID:   "c-1",
		Metadata: map[string]any{"department": "Sales Team"},
	})
	require.NoError(t, err)

	line := buf.String()
	require.True(t, strings.HasPrefix(line, "AUDIT: "))

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "AUDIT: ")), &ev))
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventRouting, ev.Type)
	assert.Equal(t, "route_call", ev.Action)
	assert.Equal(t, "t-1", ev.TenantID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestNopLoggerDiscards(t *testing.T) {
	assert.NoError(t, Nop().Record(context.Background(), EventTenant, "create", Event{}))
}
