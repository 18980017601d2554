package storage

import (
	"context"
	"fmt"
	"strings"

	"standupbot/pkg/logx"
)

// Open returns a Store for cfg. Disabled storage yields a no-op store so
// callers never branch on persistence being configured.
func Open(cfg Config, log logx.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return nopStore{}, nil
	case "sqlite":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

type nopStore struct{}

func (nopStore) SaveStandupResponse(context.Context, StandupResponse) error { return nil }

func (nopStore) SaveHealthCheck(context.Context, HealthCheckResponse) error { return nil }

func (nopStore) AppendReminderAudit(context.Context, ReminderAudit) error { return nil }

func (nopStore) Close() error { return nil }
