package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ConfigError reports a missing or malformed configuration field. It is
// fatal at startup.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Load reads, decodes and validates a config file (YAML or JSON).
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := parse(path, b)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(path string, b []byte) (*Config, error) {
	jb, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the engine cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return &ConfigError{Field: "telegram.token", Msg: "required"}
	}
	if c.Telegram.ChannelID == 0 {
		return &ConfigError{Field: "telegram.channel_id", Msg: "required"}
	}
	if strings.TrimSpace(c.Schedule.StandupTime) == "" {
		return &ConfigError{Field: "schedule.standup_time", Msg: "required"}
	}
	if strings.TrimSpace(c.Schedule.HealthCheckTime) == "" {
		return &ConfigError{Field: "schedule.health_check_time", Msg: "required"}
	}
	for field, raw := range map[string]string{
		"schedule.reminder_threshold": c.Schedule.ReminderThreshold,
		"schedule.tick_interval":      c.Schedule.TickInterval,
		"schedule.job_timeout":        c.Schedule.JobTimeout,
	} {
		if _, err := ParseDurationField(field, raw); err != nil {
			return err
		}
	}
	return nil
}

// ParseDurationField parses a duration-string setting. Empty means unset
// and yields zero; malformed or negative values yield a *ConfigError
// naming the field.
func ParseDurationField(field, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &ConfigError{Field: field, Msg: fmt.Sprintf("invalid duration %q", raw)}
	}
	if d < 0 {
		return 0, &ConfigError{Field: field, Msg: "duration must not be negative"}
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField for knobs that carry an
// engine default when left unset.
func ParseDurationOrDefault(field, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(field, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
