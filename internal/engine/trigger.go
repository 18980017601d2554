package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type TriggerKind int

const (
	// TriggerFixedTime fires once per calendar day at HH:MM.
	TriggerFixedTime TriggerKind = iota + 1
	// TriggerFixedInterval fires once per elapsed-interval window.
	TriggerFixedInterval
	// TriggerCronSpec fires per a standard 5-field cron expression.
	TriggerCronSpec
)

// Trigger describes when a registered job is due. Evaluation is a pure
// function of the injected clock; no trigger kind sleeps or schedules on
// its own.
type Trigger struct {
	Kind TriggerKind

	// FixedTime
	Hour, Minute int

	// FixedInterval
	Every time.Duration

	// CronSpec
	Spec  string
	sched cron.Schedule
}

// At builds a daily fixed-time trigger from "HH:MM".
func At(hhmm string) (Trigger, error) {
	h, m, err := parseHHMM(hhmm)
	if err != nil {
		return Trigger{}, err
	}
	return Trigger{Kind: TriggerFixedTime, Hour: h, Minute: m}, nil
}

// Every builds a fixed-interval trigger.
func Every(d time.Duration) (Trigger, error) {
	if d <= 0 {
		return Trigger{}, fmt.Errorf("interval must be > 0, got %s", d)
	}
	return Trigger{Kind: TriggerFixedInterval, Every: d}, nil
}

// Cron builds a trigger from a standard 5-field cron spec. The spec is
// parsed once at build time; due-checks use the parsed schedule's Next,
// which is pure with respect to the clock.
func Cron(spec string) (Trigger, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return Trigger{}, fmt.Errorf("cron spec %q: %w", spec, err)
	}
	return Trigger{Kind: TriggerCronSpec, Spec: spec, sched: sched}, nil
}

func (t Trigger) String() string {
	switch t.Kind {
	case TriggerFixedTime:
		return fmt.Sprintf("daily %02d:%02d", t.Hour, t.Minute)
	case TriggerFixedInterval:
		return "every " + t.Every.String()
	case TriggerCronSpec:
		return "cron " + t.Spec
	default:
		return "invalid"
	}
}

// NextRuns previews the next n fire times after now, for registration
// debug logging. FixedInterval previews assume a fire at now.
func (t Trigger) NextRuns(now time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	switch t.Kind {
	case TriggerFixedTime:
		at := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		for i := 0; i < n; i++ {
			out = append(out, at)
			at = at.AddDate(0, 0, 1)
		}
	case TriggerFixedInterval:
		at := now
		for i := 0; i < n; i++ {
			at = at.Add(t.Every)
			out = append(out, at)
		}
	case TriggerCronSpec:
		at := now
		for i := 0; i < n; i++ {
			at = t.sched.Next(at)
			out = append(out, at)
		}
	}
	return out
}

func parseHHMM(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
