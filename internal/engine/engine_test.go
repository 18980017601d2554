package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"standupbot/pkg/logx"
)

// standupDay walks the canonical day: standup at 09:00 with a 2-hour
// reminder threshold and 3 expected users.
func TestStandupDayScenario(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	clock := newFakeClock(day.Add(8*time.Hour + 55*time.Minute))
	notifier := &recordingNotifier{}

	eng := New(Options{
		Clock:             clock,
		Log:               logx.Nop(),
		Notifier:          notifier,
		ReminderThreshold: 2 * time.Hour,
	})

	users := []string{"u1", "u2", "u3"}
	reset, err := At("00:00")
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if err := eng.RegisterJob("daily-reset", reset, func(ctx context.Context) error {
		eng.Tracker().ResetForNewDay(clock.Now())
		return nil
	}); err != nil {
		t.Fatalf("register reset: %v", err)
	}
	standupAt, err := At("09:00")
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if err := eng.RegisterJob("standup-prompt", standupAt, func(ctx context.Context) error {
		if eng.Tracker().IsSent(PromptStandup) {
			return nil
		}
		eng.Tracker().RecordStandupIssued("th-1", users, clock.Now())
		eng.Tracker().MarkSent(PromptStandup)
		return nil
	}); err != nil {
		t.Fatalf("register standup: %v", err)
	}

	eng.tracker.ResetForNewDay(clock.Now())
	tick := func() { eng.loop.runTick(context.Background()) }

	// 08:55 — nothing due.
	tick()
	if eng.Tracker().IsSent(PromptStandup) {
		t.Fatal("standup sent before 09:00")
	}

	// 09:00 — standup fires, ActiveStandup created with issuedAt=09:00.
	clock.Set(day.Add(9 * time.Hour))
	tick()
	if !eng.Tracker().IsSent(PromptStandup) {
		t.Fatal("standup not sent at 09:00")
	}
	sum := eng.DailySummary(clock.Now())
	if len(sum.Standups) != 1 || !sum.Standups[0].IssuedAt.Equal(day.Add(9*time.Hour)) {
		t.Fatalf("standup state after 09:00: %+v", sum.Standups)
	}

	// 11:01 — past threshold, nobody responded: one reminder.
	clock.Set(day.Add(11*time.Hour + time.Minute))
	tick()
	if sends := notifier.threadSends(); len(sends) != 1 || sends[0] != "th-1" {
		t.Fatalf("reminders after 11:01 = %v, want [th-1]", sends)
	}

	// 11:30 — no second reminder.
	clock.Set(day.Add(11*time.Hour + 30*time.Minute))
	tick()
	if sends := notifier.threadSends(); len(sends) != 1 {
		t.Fatalf("second reminder fired: %v", sends)
	}

	// D+1 00:00 — reset clears the sent flag.
	clock.Set(day.AddDate(0, 0, 1))
	tick()
	if eng.Tracker().IsSent(PromptStandup) {
		t.Fatal("standup sent flag survived day reset")
	}
}

func TestAllRespondedNoReminder(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	clock := newFakeClock(day.Add(9 * time.Hour))
	notifier := &recordingNotifier{}
	eng := New(Options{
		Clock:             clock,
		Log:               logx.Nop(),
		Notifier:          notifier,
		ReminderThreshold: 2 * time.Hour,
	})
	eng.tracker.ResetForNewDay(clock.Now())
	eng.Tracker().RecordStandupIssued("th-1", []string{"u1", "u2", "u3"}, clock.Now())

	// All respond by 10:00 (through the synchronized entry point).
	clock.Set(day.Add(10 * time.Hour))
	for _, u := range []string{"u1", "u2", "u3"} {
		if !eng.RecordResponse("th-1", u) {
			t.Fatalf("response %s not applied", u)
		}
	}

	clock.Set(day.Add(11*time.Hour + time.Minute))
	eng.loop.runTick(context.Background())
	if sends := notifier.threadSends(); len(sends) != 0 {
		t.Fatalf("reminder fired for fully responded standup: %v", sends)
	}
}

func TestTriggerNowSerializedWithTick(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC))
	eng := New(Options{
		Clock:      clock,
		Log:        logx.Nop(),
		Notifier:   &recordingNotifier{},
		JobTimeout: 5 * time.Second,
	})

	started := make(chan struct{})
	release := make(chan struct{})
	var runs int32
	err := eng.RegisterJob("standup-prompt", mustAt(t, "09:00"), func(ctx context.Context) error {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
			<-release
		}
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	manualDone := make(chan error, 1)
	go func() { manualDone <- eng.TriggerNow(context.Background(), "standup-prompt") }()
	<-started

	// A tick arriving while the manual fire is in flight must wait for it
	// and then see the consumed slot instead of double-invoking.
	tickDone := make(chan struct{})
	go func() {
		eng.loop.runTick(context.Background())
		close(tickDone)
	}()
	select {
	case <-tickDone:
		t.Fatal("tick completed while the manual fire was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-manualDone; err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}
	<-tickDone
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("action ran %d times, want 1", got)
	}
}

func TestSweepRemindersManual(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	clock := newFakeClock(day.Add(9 * time.Hour))
	notifier := &recordingNotifier{}
	eng := New(Options{
		Clock:             clock,
		Log:               logx.Nop(),
		Notifier:          notifier,
		ReminderThreshold: 2 * time.Hour,
	})
	eng.tracker.ResetForNewDay(clock.Now())
	eng.Tracker().RecordStandupIssued("th-1", []string{"u1"}, clock.Now())

	clock.Advance(3 * time.Hour)
	if n := eng.SweepReminders(context.Background()); n != 1 {
		t.Fatalf("manual sweep sent %d reminders, want 1", n)
	}
	if n := eng.SweepReminders(context.Background()); n != 0 {
		t.Fatalf("repeat sweep sent %d reminders, want 0", n)
	}
}

func TestTriggerNow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC))
	eng := New(Options{Clock: clock, Log: logx.Nop(), Notifier: &recordingNotifier{}})

	ran := 0
	trig, err := At("09:00")
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if err := eng.RegisterJob("standup-prompt", trig, func(ctx context.Context) error {
		ran++
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := eng.TriggerNow(context.Background(), "standup-prompt"); err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}
	if ran != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}

	// The manual fire consumed today's slot.
	clock.Set(time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC))
	eng.loop.runTick(context.Background())
	if ran != 1 {
		t.Fatalf("scheduled fire ran after manual fire, ran = %d", ran)
	}

	if err := eng.TriggerNow(context.Background(), "nope"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("TriggerNow(unknown) = %v, want ErrUnknownJob", err)
	}
}
