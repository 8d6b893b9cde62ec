// Package audit records routing and escalation lifecycle events as
// structured JSON lines, independent of the per-day routing-log lists the
// engine keeps in the store. The writer is injectable so tests and custom
// sinks can capture events.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of the audit event.
type EventType string

const (
	EventRouting    EventType = "ROUTING"
	EventEscalation EventType = "ESCALATION"
	EventTenant     EventType = "TENANT"
)

// Event represents a structured audit record.
type Event struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	Type      EventType      `json:"type"`
	Action    string         `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Logger defines the interface for recording audit events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, action string, ev Event) error
}

// logger implements Logger, writing structured JSON to a configurable Writer.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewLogger creates a Logger writing to os.Stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing to the given writer.
func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{writer: w}
}

func (l *logger) Record(ctx context.Context, eventType EventType, action string, ev Event) error {
	ev.ID = uuid.New().String()
	ev.Type = eventType
	ev.Action = action
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	// Prefix with AUDIT: for easy filtering
	_, err = l.writer.Write(append([]byte("AUDIT: "), append(data, '\n')...))
	return err
}

// Nop returns a Logger that discards every event.
func Nop() Logger {
	return &logger{writer: io.Discard}
}
