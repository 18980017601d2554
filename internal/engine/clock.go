package engine

import "time"

// Clock supplies the current wall-clock time. The dispatch loop, trigger
// evaluation and the reminder escalator only see time through this
// interface so tests can drive them with a synthetic clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// dayKey is the calendar-date identity used for once-per-day bookkeeping.
// Comparisons are date-based, never minute-exact.
func dayKey(t time.Time) string { return t.Format("2006-01-02") }
