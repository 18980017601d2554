package engine

import (
	"sort"
	"sync"
	"time"

	"standupbot/pkg/logx"
)

type PromptKind string

const (
	PromptStandup     PromptKind = "standup"
	PromptHealthCheck PromptKind = "health_check"
)

// ActiveStandup is one outstanding standup conversation awaiting
// responses. IssuedAt is set once at creation and never mutated.
type ActiveStandup struct {
	ThreadID  string
	IssuedAt  time.Time
	Expected  map[string]struct{}
	Responded map[string]struct{}
	Reminded  bool
	Resolved  bool
}

func (s *ActiveStandup) missing() []string {
	var out []string
	for u := range s.Expected {
		if _, ok := s.Responded[u]; !ok {
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out
}

func (s *ActiveStandup) allResponded() bool {
	for u := range s.Expected {
		if _, ok := s.Responded[u]; !ok {
			return false
		}
	}
	return true
}

// ReminderClaim is one standup whose reminder flag was just consumed.
// The escalator sends for each claim; the flag stays consumed whether or
// not the send succeeds, so a reminder goes out at most once per thread.
type ReminderClaim struct {
	ThreadID string
	IssuedAt time.Time
	Missing  []string
}

// Tracker holds the current day's prompt cycle: per-kind sent flags and
// the set of active standups. One mutex guards everything; external
// response events (HTTP callbacks, chat updates) and the dispatch
// goroutine both enter through it.
type Tracker struct {
	mu       sync.Mutex
	day      string
	sent     map[PromptKind]bool
	standups map[string]*ActiveStandup

	log logx.Logger
}

func NewTracker(log logx.Logger) *Tracker {
	return &Tracker{
		sent:     map[PromptKind]bool{},
		standups: map[string]*ActiveStandup{},
		log:      log,
	}
}

// ResetForNewDay starts the prompt cycle for date. Idempotent: a second
// call for the same date is a no-op, so double-firing the midnight job
// cannot clear mid-day state. The previous day's standups are dropped;
// responses that arrive for them afterwards are silently ignored.
func (t *Tracker) ResetForNewDay(date time.Time) {
	key := dayKey(date)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.day == key {
		return
	}
	t.day = key
	t.sent = map[PromptKind]bool{}
	t.standups = map[string]*ActiveStandup{}
	t.log.Info("daily prompt cycle reset", logx.String("date", key))
}

func (t *Tracker) MarkSent(kind PromptKind) {
	t.mu.Lock()
	t.sent[kind] = true
	t.mu.Unlock()
}

func (t *Tracker) IsSent(kind PromptKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent[kind]
}

// RecordStandupIssued creates an ActiveStandup for threadID. A repeat
// threadID keeps the original entry (IssuedAt is set once).
func (t *Tracker) RecordStandupIssued(threadID string, expectedUsers []string, issuedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.standups[threadID]; ok {
		return
	}
	exp := make(map[string]struct{}, len(expectedUsers))
	for _, u := range expectedUsers {
		exp[u] = struct{}{}
	}
	t.standups[threadID] = &ActiveStandup{
		ThreadID:  threadID,
		IssuedAt:  issuedAt,
		Expected:  exp,
		Responded: map[string]struct{}{},
	}
	t.log.Debug("standup issued",
		logx.String("thread", threadID),
		logx.Int("expected", len(exp)),
		logx.Time("issued_at", issuedAt))
}

// RecordResponse adds userID to the responded set. Unknown thread (cycle
// already reset) and repeated responses are no-ops, not errors. Returns
// whether the response was newly applied.
func (t *Tracker) RecordResponse(threadID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.standups[threadID]
	if !ok {
		t.log.Debug("response for unknown thread ignored", logx.String("thread", threadID), logx.String("user", userID))
		return false
	}
	if _, dup := s.Responded[userID]; dup {
		return false
	}
	s.Responded[userID] = struct{}{}
	t.log.Debug("standup response recorded",
		logx.String("thread", threadID),
		logx.String("user", userID),
		logx.Int("responded", len(s.Responded)),
		logx.Int("expected", len(s.Expected)))
	return true
}

// ClaimReminders marks standups that are past threshold and still have
// unresponded users, consuming their reminder flag under the lock. Fully
// responded standups are marked resolved and never claimed. Claims come
// back ordered by IssuedAt ascending.
func (t *Tracker) ClaimReminders(now time.Time, threshold time.Duration) []ReminderClaim {
	t.mu.Lock()
	defer t.mu.Unlock()

	ordered := make([]*ActiveStandup, 0, len(t.standups))
	for _, s := range t.standups {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].IssuedAt.Before(ordered[j].IssuedAt) })

	var claims []ReminderClaim
	for _, s := range ordered {
		if s.Reminded || s.Resolved {
			continue
		}
		if s.allResponded() {
			s.Resolved = true
			continue
		}
		if now.Sub(s.IssuedAt) < threshold {
			continue
		}
		s.Reminded = true
		claims = append(claims, ReminderClaim{
			ThreadID: s.ThreadID,
			IssuedAt: s.IssuedAt,
			Missing:  s.missing(),
		})
	}
	return claims
}

// StandupStatus is a reporting view of one standup.
type StandupStatus struct {
	ThreadID  string
	IssuedAt  time.Time
	Expected  int
	Responded int
	Missing   []string
	Reminded  bool
	Resolved  bool
}

// Summary is the per-day report exposed to consumers.
type Summary struct {
	Date     string
	Sent     map[PromptKind]bool
	Standups []StandupStatus
}

// Summary reports the cycle for date. Only the current day is tracked;
// any other date yields an empty summary.
func (t *Tracker) Summary(date time.Time) Summary {
	key := dayKey(date)
	t.mu.Lock()
	defer t.mu.Unlock()

	out := Summary{Date: key, Sent: map[PromptKind]bool{}}
	if t.day != key {
		return out
	}
	for k, v := range t.sent {
		out.Sent[k] = v
	}
	for _, s := range t.standups {
		out.Standups = append(out.Standups, StandupStatus{
			ThreadID:  s.ThreadID,
			IssuedAt:  s.IssuedAt,
			Expected:  len(s.Expected),
			Responded: len(s.Responded),
			Missing:   s.missing(),
			Reminded:  s.Reminded,
			Resolved:  s.Resolved,
		})
	}
	sort.Slice(out.Standups, func(i, j int) bool { return out.Standups[i].IssuedAt.Before(out.Standups[j].IssuedAt) })
	return out
}
