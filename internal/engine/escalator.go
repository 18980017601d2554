package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"standupbot/pkg/logx"
)

// Notifier is the outbound side effect boundary the escalator (and the
// engine's prompt jobs) talk to. Implementations must bound their own
// network calls; the escalator additionally applies a per-call timeout.
type Notifier interface {
	SendToUser(ctx context.Context, userID, text string) error
	SendToThread(ctx context.Context, threadID, text string) error
	SendToChannel(ctx context.Context, channel, text string) error
}

const reminderText = "⏰ Reminder: please respond to the daily standup!\n\n" +
	"If you haven't already, reply in this thread with your update. " +
	"Your input helps the team stay aligned."

// Escalator sweeps active standups on every dispatch tick and sends at
// most one reminder per standup once the threshold has elapsed. When an
// escalation channel is configured, the list of unresponsive users is
// posted there as well.
type Escalator struct {
	tracker  *Tracker
	notifier Notifier
	log      logx.Logger

	threshold   time.Duration
	sendTimeout time.Duration
	escChannel  string

	// onReminder, when set, observes each consumed reminder claim
	// (the app layer uses it for audit rows).
	onReminder func(ReminderClaim)
}

func NewEscalator(tracker *Tracker, notifier Notifier, threshold, sendTimeout time.Duration, escChannel string, log logx.Logger) *Escalator {
	if threshold <= 0 {
		threshold = 2 * time.Hour
	}
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &Escalator{
		tracker:     tracker,
		notifier:    notifier,
		log:         log,
		threshold:   threshold,
		sendTimeout: sendTimeout,
		escChannel:  escChannel,
	}
}

// Sweep claims and sends due reminders. Send failures are logged and
// counted but never retried: the reminder flag was consumed at claim
// time, which is what keeps the at-most-once invariant across ticks.
// Returns the number of reminders attempted.
func (e *Escalator) Sweep(ctx context.Context, now time.Time) int {
	claims := e.tracker.ClaimReminders(now, e.threshold)
	for _, c := range claims {
		e.send(ctx, c, now)
		if e.onReminder != nil {
			e.onReminder(c)
		}
	}
	return len(claims)
}

func (e *Escalator) send(ctx context.Context, c ReminderClaim, now time.Time) {
	sctx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	err := e.notifier.SendToThread(sctx, c.ThreadID, reminderText)
	cancel()
	if err != nil {
		e.log.Warn("reminder send failed",
			logx.String("thread", c.ThreadID),
			logx.Int("missing", len(c.Missing)),
			logx.Err(err))
	} else {
		e.log.Info("reminder sent",
			logx.String("thread", c.ThreadID),
			logx.Int("missing", len(c.Missing)),
			logx.Duration("overdue", now.Sub(c.IssuedAt)-e.threshold))
	}

	if e.escChannel == "" || len(c.Missing) == 0 {
		return
	}
	text := fmt.Sprintf("🚨 Standup escalation: %d user(s) unresponsive after %s\nMissing: %s",
		len(c.Missing), e.threshold, strings.Join(c.Missing, ", "))
	// Own budget: a slow thread send must not eat into the channel post's
	// timeout.
	cctx, ccancel := context.WithTimeout(ctx, e.sendTimeout)
	defer ccancel()
	if err := e.notifier.SendToChannel(cctx, e.escChannel, text); err != nil {
		e.log.Warn("escalation send failed", logx.String("channel", e.escChannel), logx.Err(err))
	}
}
