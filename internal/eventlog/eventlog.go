package eventlog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"bingxTerminal/internal/domain"
)

// Log is an append-only, time-ordered record of human-readable notifications.
// Entries are never removed or deduplicated; unbounded growth is acceptable
// for the lifetime of a dashboard session. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []domain.LogEntry
}

// New creates an empty event log.
func New() *Log {
	return &Log{}
}

// Append records a new entry with a unique id and the current timestamp,
// and returns the stored entry.
func (l *Log) Append(message string, severity domain.Severity) domain.LogEntry {
	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Message:   message,
		Severity:  severity,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	return entry
}

// Entries returns a copy of all entries in append order, most recent last.
func (l *Log) Entries() []domain.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
