// Package directory answers who should receive the daily prompts.
package directory

import "context"

// Directory lists the users expected to respond. An empty list means
// "nothing to notify", never an error.
type Directory interface {
	ListActiveUsers(ctx context.Context) ([]string, error)
}

// Static serves a fixed user list from configuration.
type Static struct {
	users []string
}

func NewStatic(users []string) *Static {
	cp := make([]string, len(users))
	copy(cp, users)
	return &Static{users: cp}
}

func (s *Static) ListActiveUsers(ctx context.Context) ([]string, error) {
	out := make([]string, len(s.users))
	copy(out, s.users)
	return out, nil
}
