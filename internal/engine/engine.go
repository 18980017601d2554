package engine

import (
	"context"
	"fmt"
	"time"

	"standupbot/pkg/logx"
)

// Options configures an Engine. Zero values fall back to production
// defaults; tests inject Clock and shrink the timing knobs.
type Options struct {
	Clock             Clock
	Log               logx.Logger
	Notifier          Notifier
	TickInterval      time.Duration
	JobTimeout        time.Duration
	ReminderThreshold time.Duration
	SendTimeout       time.Duration
	EscalationChannel string
	// OnReminder observes each reminder the escalator consumes.
	OnReminder func(ReminderClaim)
}

// Engine owns the scheduling state: job registry, dispatch loop, daily
// prompt tracker and reminder escalator. One instance per process;
// construct it explicitly, run it, tear it down. Invariants hold for a
// single running instance only.
type Engine struct {
	reg     *Registry
	loop    *Loop
	tracker *Tracker
	esc     *Escalator
	clock   Clock
	log     logx.Logger
}

func New(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	log := opts.Log

	reg := NewRegistry(clock)
	loop := NewLoop(reg, clock, opts.TickInterval, opts.JobTimeout, log)
	tracker := NewTracker(log)
	esc := NewEscalator(tracker, opts.Notifier, opts.ReminderThreshold, opts.SendTimeout, opts.EscalationChannel, log)
	esc.onReminder = opts.OnReminder
	loop.OnTick(func(ctx context.Context, now time.Time) {
		esc.Sweep(ctx, now)
	})

	return &Engine{reg: reg, loop: loop, tracker: tracker, esc: esc, clock: clock, log: log}
}

// RegisterJob adds a recurring job. Fatal at startup on duplicate names.
func (e *Engine) RegisterJob(name string, trig Trigger, action Action) error {
	if err := e.reg.Register(name, trig, action); err != nil {
		return err
	}
	next := trig.NextRuns(e.clock.Now(), 2)
	fields := []logx.Field{logx.String("job", name), logx.String("trigger", trig.String())}
	if len(next) > 0 {
		fields = append(fields, logx.Time("next", next[0]))
	}
	e.log.Debug("job registered", fields...)
	return nil
}

// Run drives the dispatch loop until ctx is cancelled. The tracker's day
// cycle is initialized for the current date before the first tick so a
// mid-day restart does not treat the day as unseen forever.
func (e *Engine) Run(ctx context.Context) error {
	e.tracker.ResetForNewDay(e.clock.Now())
	return e.loop.Run(ctx)
}

// TriggerNow fires a registered job immediately, outside its schedule.
// Operator/debug path; the fire is serialized against the dispatch tick
// and bookkeeping is updated exactly as for a scheduled fire, so a
// manual fire suppresses the day's scheduled one.
func (e *Engine) TriggerNow(ctx context.Context, name string) error {
	j, ok := e.reg.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if err := e.loop.RunNow(ctx, j); err != nil {
		return fmt.Errorf("job %q: %w", name, err)
	}
	e.log.Info("job triggered manually", logx.String("job", name))
	return nil
}

// SweepReminders runs an escalation sweep immediately, outside the
// per-tick hook. Used by the scheduled reminder-check job; redundant
// sweeps are harmless because claims are consumed at most once.
func (e *Engine) SweepReminders(ctx context.Context) int {
	return e.esc.Sweep(ctx, e.clock.Now())
}

// RecordResponse is the synchronized entry point for the response
// ingestion collaborator. Safe to call from any goroutine.
func (e *Engine) RecordResponse(threadID, userID string) bool {
	return e.tracker.RecordResponse(threadID, userID)
}

// Tracker exposes the daily prompt tracker to the prompt jobs.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// DailySummary reports sent flags and response counts for date.
func (e *Engine) DailySummary(date time.Time) Summary {
	return e.tracker.Summary(date)
}

// Clock returns the engine's time source, for callers that must stamp
// engine-visible state consistently.
func (e *Engine) Clock() Clock { return e.clock }
