// Package logging emits structured JSONL events to stderr and appends them
// to a per-project log file so failures stay inspectable after the process
// exits.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType categorizes a log event.
type EventType string

const (
	EventRun        EventType = "run"
	EventWave       EventType = "wave"
	EventStep       EventType = "step"
	EventVerify     EventType = "verify"
	EventCheckpoint EventType = "checkpoint"
	EventDeviation  EventType = "deviation"
	EventError      EventType = "error"
)

// Event is one structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	StepID    string    `json:"step_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger writes events. Safe for concurrent use.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	// Quiet suppresses the stderr stream; the file still gets everything.
	Quiet bool
}

// New opens (or creates) <dataDir>/logs/planwave.log and returns a logger.
func New(dataDir string) (*Logger, error) {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "planwave.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f}, nil
}

// Discard returns a logger that writes nowhere. Useful in tests.
func Discard() *Logger {
	return &Logger{Quiet: true}
}

// Log emits one event.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"type\":\"error\",\"message\":\"marshal log event: %v\"}\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.Quiet {
		fmt.Fprintln(os.Stderr, string(data))
	}
	if l.file != nil {
		l.file.Write(append(data, '\n'))
	}
}

// Close releases the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Step logs a step transition.
func (l *Logger) Step(runID, stepID, message string) {
	l.Log(Event{Type: EventStep, RunID: runID, StepID: stepID, Message: message})
}

// Run logs a run-level transition.
func (l *Logger) Run(runID, message string) {
	l.Log(Event{Type: EventRun, RunID: runID, Message: message})
}

// Error logs an error with optional step context.
func (l *Logger) Error(runID, stepID string, err error) {
	l.Log(Event{Type: EventError, RunID: runID, StepID: stepID, Message: err.Error()})
}
