// Package notify sends outbound messages through the chat adapter: the
// engine-facing notifier (user DM, standup thread, channel) and the
// best-effort broadcast used for the daily prompts.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"standupbot/internal/transport"
	"standupbot/pkg/logx"
)

type Config struct {
	// RatePerSec paces broadcast sends. Throttling only; not a
	// correctness requirement.
	RatePerSec int
	// RetryMax is per-target retry attempts within one broadcast.
	RetryMax int
}

// Service is the only component that performs user-visible side effects.
// It is safe for concurrent use; Apply may retune pacing at runtime.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	adapter transport.Adapter
	// channelID is the team channel standup threads live in.
	channelID int64
	log       logx.Logger
}

func New(cfg Config, adapter transport.Adapter, channelID int64, log logx.Logger) *Service {
	s := &Service{adapter: adapter, channelID: channelID, log: log}
	s.Apply(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// SendToUser DMs one user. userID is the chat platform's numeric id in
// decimal form.
func (s *Service) SendToUser(ctx context.Context, userID, text string) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad user id %q: %w", userID, err)
	}
	_, err = s.adapter.SendText(ctx, transport.ChatTarget{ChatID: id}, text, nil)
	return err
}

// SendToThread posts into an existing standup thread in the team channel.
func (s *Service) SendToThread(ctx context.Context, threadID, text string) error {
	tid, err := strconv.Atoi(threadID)
	if err != nil {
		return fmt.Errorf("bad thread id %q: %w", threadID, err)
	}
	_, err = s.adapter.SendText(ctx, transport.ChatTarget{ChatID: s.channelID, ThreadID: tid}, text, nil)
	return err
}

// SendToChannel posts to a channel by its decimal chat id.
func (s *Service) SendToChannel(ctx context.Context, channel, text string) error {
	id, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return fmt.Errorf("bad channel id %q: %w", channel, err)
	}
	_, err = s.adapter.SendText(ctx, transport.ChatTarget{ChatID: id}, text, nil)
	return err
}

// PostToTeamChannel posts to the configured team channel and returns the
// new message's id (the thread identifier for replies).
func (s *Service) PostToTeamChannel(ctx context.Context, text string, opt *transport.SendOptions) (string, error) {
	ref, err := s.adapter.SendText(ctx, transport.ChatTarget{ChatID: s.channelID}, text, opt)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(ref.MessageID), nil
}

// Broadcast DMs text to each user, pacing sends through the limiter.
// Per-user failures are logged and do not abort the remaining sends.
// Returns the number of successful sends; per-user error detail stays in
// the log.
func (s *Service) Broadcast(ctx context.Context, name string, users []string, text string, opt *transport.SendOptions) int {
	s.mu.Lock()
	lim := s.limiter
	retry := s.cfg.RetryMax
	s.mu.Unlock()

	id := uuid.NewString()
	start := time.Now()
	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		if err := lim.Wait(ctx); err != nil {
			break
		}
		if err := s.sendOne(ctx, u, text, opt, retry); err != nil {
			s.log.Warn("broadcast send failed",
				logx.String("broadcast", name),
				logx.String("id", id),
				logx.String("user", u),
				logx.Err(err))
			continue
		}
		sent++
	}
	fields := []logx.Field{
		logx.String("broadcast", name),
		logx.String("id", id),
		logx.Int("total", len(users)),
		logx.Int("sent", sent),
		logx.Duration("dur", time.Since(start)),
	}
	if sent < len(users) {
		s.log.Warn("broadcast finished with failures", fields...)
	} else {
		s.log.Info("broadcast finished", fields...)
	}
	return sent
}

func (s *Service) sendOne(ctx context.Context, userID, text string, opt *transport.SendOptions, retry int) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad user id %q: %w", userID, err)
	}
	var last error
	for i := 0; i <= retry; i++ {
		_, err := s.adapter.SendText(ctx, transport.ChatTarget{ChatID: id}, text, opt)
		if err == nil {
			return nil
		}
		last = err
		if i == retry {
			break
		}
		delay := time.Duration(200+100*i) * time.Millisecond
		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return ctx.Err()
		case <-tmr.C:
		}
	}
	return last
}
