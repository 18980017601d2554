package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Action is a job body. It may fail; failures are logged and isolated by
// the dispatch loop, never propagated across jobs.
type Action func(ctx context.Context) error

// Job is one recurring entry in the registry. Run bookkeeping lives here
// and is mutated only via MarkRun on the dispatch goroutine. Bookkeeping
// is in-memory: after a process restart every job starts with zero
// bookkeeping, so same-day reruns are possible (at-least-once, not
// exactly-once-across-restarts).
type Job struct {
	Name    string
	Trigger Trigger
	Action  Action

	// lastRunDay is the calendar date of the last fire (FixedTime only).
	lastRunDay string
	// lastRunAt is the instant of the last fire (FixedInterval, CronSpec).
	lastRunAt time.Time
	// registeredAt anchors the first cron due-check.
	registeredAt time.Time
}

// Registry holds the recurring jobs and answers which are due. Due and
// MarkRun are called from the single dispatch goroutine; Register from
// startup wiring. The mutex exists for TriggerNow, which may run from an
// operator path.
type Registry struct {
	mu     sync.Mutex
	jobs   []*Job
	byName map[string]*Job

	clock Clock
}

func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock()
	}
	return &Registry{byName: map[string]*Job{}, clock: clock}
}

// Register adds a job under a unique name. A name conflict returns
// *DuplicateJobError and leaves the registry unchanged.
func (r *Registry) Register(name string, trig Trigger, action Action) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("job name required")
	}
	if action == nil {
		return errors.New("job action required")
	}
	if trig.Kind == 0 {
		return errors.New("job trigger required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return &DuplicateJobError{Name: name}
	}
	j := &Job{Name: name, Trigger: trig, Action: action, registeredAt: r.clock.Now()}
	r.jobs = append(r.jobs, j)
	r.byName[name] = j
	return nil
}

// Due returns the jobs whose trigger condition holds at now and that have
// not yet run for the current period, in registration order.
func (r *Registry) Due(now time.Time) []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*Job
	for _, j := range r.jobs {
		if r.dueLocked(j, now) {
			due = append(due, j)
		}
	}
	return due
}

func (r *Registry) dueLocked(j *Job, now time.Time) bool {
	switch j.Trigger.Kind {
	case TriggerFixedTime:
		// Date-based, not minute-exact: a tick that lands any time after
		// the scheduled minute still fires the job for that day.
		if j.lastRunDay == dayKey(now) {
			return false
		}
		nowMin := now.Hour()*60 + now.Minute()
		return nowMin >= j.Trigger.Hour*60+j.Trigger.Minute
	case TriggerFixedInterval:
		if j.lastRunAt.IsZero() {
			return true
		}
		return now.Sub(j.lastRunAt) >= j.Trigger.Every
	case TriggerCronSpec:
		base := j.lastRunAt
		if base.IsZero() {
			base = j.registeredAt
		}
		return !j.Trigger.sched.Next(base).After(now)
	default:
		return false
	}
}

// MarkRun records a fire at now. The dispatch loop calls it immediately
// after invoking the action, success or not, so a job is never returned
// twice for the same period.
func (r *Registry) MarkRun(j *Job, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j.lastRunDay = dayKey(now)
	j.lastRunAt = now
}

// Lookup returns the registered job by name.
func (r *Registry) Lookup(name string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byName[name]
	return j, ok
}

// Names lists registered job names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.Name)
	}
	return out
}
