package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
telegram:
  token: "123:abc"
  channel_id: -1001
  escalation_channel: "-1002"
logging:
  level: debug
  console: true
schedule:
  standup_time: "09:00"
  health_check_time: "09:30"
  reminder_threshold: "2h"
  tick_interval: "1m"
broadcast:
  rate_per_sec: 2
users: ["11", "22"]
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

// stripLine removes the first line whose trimmed content equals line.
func stripLine(content, line string) string {
	var out []string
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) == line {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeTemp(t, "config.yaml", validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.ChannelID != -1001 {
		t.Fatalf("channel_id = %d", cfg.Telegram.ChannelID)
	}
	if cfg.Schedule.StandupTime != "09:00" {
		t.Fatalf("standup_time = %q", cfg.Schedule.StandupTime)
	}
	if len(cfg.Users) != 2 {
		t.Fatalf("users = %v", cfg.Users)
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	const js = `{
  "telegram": {"token": "t", "channel_id": 5},
  "logging": {"console": true},
  "schedule": {"standup_time": "10:00", "health_check_time": "09:00"},
  "broadcast": {},
  "users": []
}`
	cfg, err := Load(writeTemp(t, "config.json", js))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule.StandupTime != "10:00" {
		t.Fatalf("standup_time = %q", cfg.Schedule.StandupTime)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := Load(writeTemp(t, "config.yaml", validYAML+"\nsurprise: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateMissingScheduleTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		strip string
	}{
		{name: "standup_time", strip: `standup_time: "09:00"`},
		{name: "health_check_time", strip: `health_check_time: "09:30"`},
		{name: "token", strip: `token: "123:abc"`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, "config.yaml", stripLine(validYAML, tt.strip)))
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestValidateBadDuration(t *testing.T) {
	t.Parallel()
	bad := strings.Replace(validYAML, `reminder_threshold: "2h"`, `reminder_threshold: "soon"`, 1)
	_, err := Load(writeTemp(t, "config.yaml", bad))
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError for bad duration, got %v", err)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("f", "", 2*time.Hour)
	if err != nil || d != 2*time.Hour {
		t.Fatalf("default: %v %v", d, err)
	}
	d, err = ParseDurationOrDefault("f", "90s", 2*time.Hour)
	if err != nil || d != 90*time.Second {
		t.Fatalf("explicit: %v %v", d, err)
	}
	for _, raw := range []string{"-5s", "soon"} {
		_, err := ParseDurationField("schedule.tick_interval", raw)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Fatalf("ParseDurationField(%q) = %v, want ConfigError", raw, err)
		}
		if ce.Field != "schedule.tick_interval" {
			t.Fatalf("ConfigError.Field = %q", ce.Field)
		}
	}
}
