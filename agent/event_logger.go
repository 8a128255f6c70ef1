package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventLogger is the interface for logging structured events during execution
type EventLogger interface {
	LogEvent(eventType string, data map[string]any)
}

// contextEventLogger wraps an EventLogger and adds context fields to every event
type contextEventLogger struct {
	inner  EventLogger
	fields map[string]any
}

// NewContextEventLogger returns a logger that merges the given fields into
// every event before forwarding to inner. Event-level fields win on conflict.
func NewContextEventLogger(inner EventLogger, fields map[string]any) EventLogger {
	return &contextEventLogger{inner: inner, fields: fields}
}

func (l *contextEventLogger) LogEvent(eventType string, data map[string]any) {
	merged := make(map[string]any, len(l.fields)+len(data))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	l.inner.LogEvent(eventType, merged)
}

// FileEventLogger appends events as JSON lines to a file. The intake CLI's
// debug mode uses it to capture the agent's model and tool activity.
type FileEventLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileEventLogger creates (truncating) the file at path for event logging.
func NewFileEventLogger(path string) (*FileEventLogger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating event log: %w", err)
	}
	return &FileEventLogger{file: f}, nil
}

// LogEvent writes one timestamped event line.
func (l *FileEventLogger) LogEvent(eventType string, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	entry := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"event":     eventType,
	}
	for k, v := range data {
		entry[k] = v
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.file.WriteString(string(jsonBytes) + "\n")
}

// Close closes the underlying file.
func (l *FileEventLogger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}
