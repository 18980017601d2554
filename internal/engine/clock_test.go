package engine

import (
	"context"
	"sync"
	"time"
)

// fakeClock drives engine time in tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recordingNotifier captures sends for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	threads  []string
	channels []string
	users    []string
	fail     bool
}

func (n *recordingNotifier) SendToUser(ctx context.Context, userID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	if n.fail {
		return errSendFail
	}
	return nil
}

func (n *recordingNotifier) SendToThread(ctx context.Context, threadID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.threads = append(n.threads, threadID)
	if n.fail {
		return errSendFail
	}
	return nil
}

func (n *recordingNotifier) SendToChannel(ctx context.Context, channel, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, channel)
	if n.fail {
		return errSendFail
	}
	return nil
}

func (n *recordingNotifier) threadSends() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.threads))
	copy(out, n.threads)
	return out
}
