package domain

import "time"

// LogEntry is a single human-readable notification in the session event log.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"type"`
}
