package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"standupbot/pkg/logx"
)

// TickHook runs after the due jobs of a tick, on the same goroutine. The
// reminder escalator is wired in as one.
type TickHook func(ctx context.Context, now time.Time)

// Loop is the single control goroutine that polls the registry and runs
// due jobs sequentially. It owns all run bookkeeping mutation.
//
// The tick interval trades CPU/API overhead for timing slack: with a
// 1-hour tick a fixed-time job may fire up to ~59 minutes late. The
// default of 1 minute keeps slack below operator-visible levels.
type Loop struct {
	reg        *Registry
	clock      Clock
	log        logx.Logger
	tick       time.Duration
	jobTimeout time.Duration
	hooks      []TickHook

	// runMu serializes ticks with manual fires (RunNow): a job's invoke
	// and its MarkRun are atomic with respect to the other path, so one
	// period can never be claimed twice.
	runMu sync.Mutex
}

func NewLoop(reg *Registry, clock Clock, tick, jobTimeout time.Duration, log logx.Logger) *Loop {
	if tick <= 0 {
		tick = time.Minute
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Loop{reg: reg, clock: clock, log: log, tick: tick, jobTimeout: jobTimeout}
}

// OnTick appends a hook. Call before Run.
func (l *Loop) OnTick(h TickHook) {
	l.hooks = append(l.hooks, h)
}

// Run ticks until ctx is cancelled. An immediate first tick runs before
// the ticker starts so a restart does not wait a full interval. Returns
// nil on graceful shutdown: the in-flight job finishes, no new due jobs
// start after cancellation.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("dispatch loop started",
		logx.Duration("tick", l.tick),
		logx.Duration("job_timeout", l.jobTimeout),
		logx.Int("jobs", len(l.reg.Names())))

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	l.runTick(ctx)
	for {
		select {
		case <-ctx.Done():
			l.log.Info("dispatch loop stopped")
			return nil
		case <-ticker.C:
			l.runTick(ctx)
		}
	}
}

func (l *Loop) runTick(ctx context.Context) {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	now := l.clock.Now()
	for _, j := range l.reg.Due(now) {
		if ctx.Err() != nil {
			return
		}
		err := l.invoke(ctx, j)
		// Bookkeeping advances even when the action failed: the next
		// cycle retries, not the next tick.
		l.reg.MarkRun(j, now)
		if err != nil {
			l.log.Error("job failed", logx.String("job", j.Name), logx.Err(err))
		} else {
			l.log.Info("job ran", logx.String("job", j.Name), logx.String("trigger", j.Trigger.String()))
		}
	}
	for _, h := range l.hooks {
		if ctx.Err() != nil {
			return
		}
		h(ctx, l.clock.Now())
	}
}

// RunNow fires j outside its schedule, serialized against the tick.
// Bookkeeping advances exactly as for a scheduled fire.
func (l *Loop) RunNow(ctx context.Context, j *Job) error {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	err := l.invoke(ctx, j)
	l.reg.MarkRun(j, l.clock.Now())
	return err
}

// invoke runs one job action with a bounded timeout and panic recovery.
func (l *Loop) invoke(ctx context.Context, j *Job) (err error) {
	jctx, cancel := context.WithTimeout(ctx, l.jobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job %q: %v", j.Name, r)
		}
	}()
	return j.Action(jctx)
}
