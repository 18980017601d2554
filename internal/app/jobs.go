package app

import (
	"context"
	"fmt"
	"strings"

	"standupbot/internal/adapters/telegram"
	"standupbot/internal/config"
	"standupbot/internal/engine"
	"standupbot/internal/transport"
	"standupbot/pkg/logx"
)

const standupPrompt = "🌞 Good morning team! Time for the daily standup!\n\n" +
	"Reply in this thread with:\n" +
	"1️⃣ What did you do today?\n" +
	"2️⃣ Are you on track to meet your goals? (Yes/No)\n" +
	"3️⃣ Any blockers?\n\n" +
	"Let's stay aligned! 💬"

const standupNudge = "👋 The daily standup is up in the team channel — " +
	"please reply in today's thread with your update."

const healthCheckPrompt = "💚 How are you feeling today?\n\n" +
	"This is a quick wellness check. Tap a button below — " +
	"it's private and helps us support the team better."

// registerJobs wires the recurring jobs. Registration failures
// (duplicate names, bad schedule times) are startup-fatal.
func (a *App) registerJobs(cfg *config.Config) error {
	type jobDef struct {
		name   string
		at     string
		action engine.Action
	}
	defs := []jobDef{
		{"daily-reset", "00:00", a.jobDailyReset},
		{"standup-prompt", cfg.Schedule.StandupTime, a.jobStandup},
		{"health-check-prompt", cfg.Schedule.HealthCheckTime, a.jobHealthCheck},
	}
	if strings.TrimSpace(cfg.Schedule.ReminderTime) != "" {
		defs = append(defs, jobDef{"reminder-check", cfg.Schedule.ReminderTime, a.jobReminderCheck})
	}
	if strings.TrimSpace(cfg.Schedule.DigestTime) != "" {
		defs = append(defs, jobDef{"daily-digest", cfg.Schedule.DigestTime, a.jobDigest})
	}

	for _, d := range defs {
		trig, err := engine.At(d.at)
		if err != nil {
			return fmt.Errorf("job %q: %w", d.name, err)
		}
		if err := a.eng.RegisterJob(d.name, trig, d.action); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) jobDailyReset(ctx context.Context) error {
	a.eng.Tracker().ResetForNewDay(a.eng.Clock().Now())
	return nil
}

// jobStandup posts the standup prompt to the team channel, records the
// resulting thread as the day's active standup, and nudges each user by
// DM. The sent-flag makes a double fire within one day a no-op.
func (a *App) jobStandup(ctx context.Context) error {
	tracker := a.eng.Tracker()
	if tracker.IsSent(engine.PromptStandup) {
		return nil
	}

	users, err := a.dir.ListActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		a.log.Warn("no users to send standup to")
		return nil
	}

	threadID, err := a.notif.PostToTeamChannel(ctx, standupPrompt, nil)
	if err != nil {
		return fmt.Errorf("post standup prompt: %w", err)
	}
	now := a.eng.Clock().Now()
	tracker.RecordStandupIssued(threadID, users, now)
	tracker.MarkSent(engine.PromptStandup)

	sent := a.notif.Broadcast(ctx, "standup-nudge", users, standupNudge, nil)
	a.log.Info("standup issued",
		logx.String("thread", threadID),
		logx.Int("expected", len(users)),
		logx.Int("nudged", sent))
	return nil
}

// jobHealthCheck DMs the wellness prompt with mood buttons to every
// user. Responses come back as button callbacks, not thread replies.
func (a *App) jobHealthCheck(ctx context.Context) error {
	tracker := a.eng.Tracker()
	if tracker.IsSent(engine.PromptHealthCheck) {
		return nil
	}

	users, err := a.dir.ListActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		a.log.Warn("no users to send health check to")
		return nil
	}

	opt := &transport.SendOptions{ReplyMarkupAdapter: telegram.MoodKeyboard()}
	sent := a.notif.Broadcast(ctx, "health-check", users, healthCheckPrompt, opt)
	tracker.MarkSent(engine.PromptHealthCheck)
	a.log.Info("health check issued", logx.Int("total", len(users)), logx.Int("sent", sent))
	return nil
}

// jobReminderCheck forces an escalation sweep at the configured time.
// The per-tick sweep usually gets there first; overlapping sweeps stay
// at-most-once per standup.
func (a *App) jobReminderCheck(ctx context.Context) error {
	if n := a.eng.SweepReminders(ctx); n > 0 {
		a.log.Info("scheduled reminder check sent reminders", logx.Int("count", n))
	}
	return nil
}

// jobDigest posts the day's summary to the team channel.
func (a *App) jobDigest(ctx context.Context) error {
	sum := a.eng.DailySummary(a.eng.Clock().Now())

	var b strings.Builder
	b.WriteString("📊 Daily digest for " + sum.Date + "\n\n")
	fmt.Fprintf(&b, "• Standup sent: %v\n", sum.Sent[engine.PromptStandup])
	fmt.Fprintf(&b, "• Health check sent: %v\n", sum.Sent[engine.PromptHealthCheck])
	for _, s := range sum.Standups {
		fmt.Fprintf(&b, "• Thread %s: %d/%d responded", s.ThreadID, s.Responded, s.Expected)
		if len(s.Missing) > 0 {
			fmt.Fprintf(&b, " (missing: %s)", strings.Join(s.Missing, ", "))
		}
		if s.Reminded {
			b.WriteString(" — reminded")
		}
		b.WriteString("\n")
	}

	if _, err := a.notif.PostToTeamChannel(ctx, b.String(), nil); err != nil {
		return fmt.Errorf("post digest: %w", err)
	}
	return nil
}
