package ingest

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"standupbot/internal/engine"
	"standupbot/internal/storage"
	"standupbot/pkg/logx"
)

type nopNotifier struct{}

func (nopNotifier) SendToUser(ctx context.Context, userID, text string) error { return nil }

func (nopNotifier) SendToThread(ctx context.Context, threadID, text string) error { return nil }

func (nopNotifier) SendToChannel(ctx context.Context, channel, text string) error { return nil }

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	eng := engine.New(engine.Options{Log: logx.Nop(), Notifier: nopNotifier{}})
	store, err := storage.Open(storage.Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	return New(Config{}, eng, store, logx.Nop()), eng
}

func TestCallbackRecordsStandupResponse(t *testing.T) {
	t.Parallel()
	srv, eng := newTestServer(t)

	now := time.Now()
	eng.Tracker().ResetForNewDay(now)
	eng.Tracker().RecordStandupIssued("th-1", []string{"u1"}, now)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/callback",
		strings.NewReader(`{"thread_id":"th-1","user_id":"u1","action":"standup_reply","text":"done"}`))
	srv.handleCallback(rec, req)

	if rec.Code != 204 {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	sum := eng.DailySummary(now)
	if len(sum.Standups) != 1 || sum.Standups[0].Responded != 1 {
		t.Fatalf("response not recorded: %+v", sum.Standups)
	}
}

func TestCallbackUnknownThreadIsSilent(t *testing.T) {
	t.Parallel()
	srv, eng := newTestServer(t)
	eng.Tracker().ResetForNewDay(time.Now())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/callback",
		strings.NewReader(`{"thread_id":"gone","user_id":"u1","action":"standup_reply"}`))
	srv.handleCallback(rec, req)
	if rec.Code != 204 {
		t.Fatalf("status = %d, want 204 for unknown thread", rec.Code)
	}
}

func TestCallbackRejectsBadPayload(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/callback", strings.NewReader(`not json`))
	srv.handleCallback(rec, req)
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/callback", strings.NewReader(`{"thread_id":"t"}`))
	srv.handleCallback(rec, req)
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400 for missing user_id", rec.Code)
	}
}

func TestSummaryReturnsJSON(t *testing.T) {
	t.Parallel()
	srv, eng := newTestServer(t)

	now := time.Now()
	eng.Tracker().ResetForNewDay(now)
	eng.Tracker().RecordStandupIssued("th-9", []string{"u1", "u2"}, now)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/summary", nil)
	srv.handleSummary(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var sum engine.Summary
	if err := json.NewDecoder(rec.Body).Decode(&sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(sum.Standups) != 1 || sum.Standups[0].Expected != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestCallbackHealthMood(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/callback",
		strings.NewReader(`{"user_id":"u1","action":"great"}`))
	srv.handleCallback(rec, req)
	if rec.Code != 204 {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
