package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Logger records session events somewhere durable.
type Logger interface {
	Log(event Event) error
	Close() error
}

// JSONLogger appends events to an NDJSON file, one JSON object per line.
// Opening in append mode lets a resumed session continue the same log.
type JSONLogger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	path string
}

// NewJSONLogger opens (or creates) the NDJSON log at path, creating parent
// directories as needed.
func NewJSONLogger(path string) (*JSONLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating session log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}

	return &JSONLogger{file: f, enc: json.NewEncoder(f), path: path}, nil
}

// Log appends one event. Safe for concurrent use.
func (l *JSONLogger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(event)
}

// Close closes the underlying file. The logger must not be used afterwards.
func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Path returns where the log is being written.
func (l *JSONLogger) Path() string { return l.path }

// NopLogger discards all events.
type NopLogger struct{}

func (NopLogger) Log(Event) error { return nil }
func (NopLogger) Close() error    { return nil }

// LogPath returns the session log path for a session id inside dir.
func LogPath(dir, sessionID string) string {
	return filepath.Join(dir, sessionID+".jsonl")
}

// ReadLog loads every event from an NDJSON session log.
func ReadLog(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var events []Event
	dec := json.NewDecoder(f)
	for dec.More() {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			return nil, fmt.Errorf("decoding session log %s: %w", path, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
