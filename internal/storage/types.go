// Package storage persists response payloads and reminder audit rows.
// It is a thin I/O wrapper around SQLite; the engine never depends on it
// for scheduling correctness.
package storage

import (
	"context"
	"time"
)

// Config configures storage. Driver "sqlite" writes a database file;
// empty or "none" disables persistence (all writes become no-ops).
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

type StandupResponse struct {
	Day      string
	ThreadID string
	UserID   string
	Text     string
	At       time.Time
}

type HealthCheckResponse struct {
	Day    string
	UserID string
	Mood   string // great | okay | not_great
	At     time.Time
}

type ReminderAudit struct {
	Day      string
	ThreadID string
	Missing  int
	At       time.Time
}

type Store interface {
	SaveStandupResponse(ctx context.Context, r StandupResponse) error
	SaveHealthCheck(ctx context.Context, r HealthCheckResponse) error
	AppendReminderAudit(ctx context.Context, a ReminderAudit) error
	Close() error
}
