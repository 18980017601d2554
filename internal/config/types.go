package config

// Config is the whole bot configuration.
//
// All durations are Go duration strings (e.g. "90s", "2h"). Schedule
// times are "HH:MM" in the process's local timezone.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	Schedule  ScheduleConfig  `json:"schedule"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Ingest    *IngestConfig   `json:"ingest,omitempty"`

	// Users are the chat user ids expected to respond to daily prompts.
	Users []string `json:"users"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// ChannelID is the team channel standup prompts are posted to.
	ChannelID int64 `json:"channel_id"`
	// EscalationChannel receives the unresponsive-user list when a
	// reminder fires. Empty disables escalation posts.
	EscalationChannel string `json:"escalation_channel,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ScheduleConfig drives the engine's recurring jobs.
//
// StandupTime and HealthCheckTime are required. DigestTime is optional;
// when set, a daily summary is posted to the team channel at that time.
type ScheduleConfig struct {
	StandupTime     string `json:"standup_time"`
	HealthCheckTime string `json:"health_check_time"`
	// ReminderTime optionally schedules an explicit reminder sweep at a
	// fixed time, in addition to the per-tick sweep.
	ReminderTime string `json:"reminder_time,omitempty"`
	DigestTime   string `json:"digest_time,omitempty"`

	// ReminderThreshold is elapsed time after a standup prompt before
	// the one reminder fires. Default "2h".
	ReminderThreshold string `json:"reminder_threshold,omitempty"`
	// TickInterval is the dispatch loop poll period. Default "1m".
	// Coarser ticks cost timing slack up to one interval.
	TickInterval string `json:"tick_interval,omitempty"`
	// JobTimeout bounds one job invocation. Default "30s".
	JobTimeout string `json:"job_timeout,omitempty"`
}

type BroadcastConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
	RetryMax   int `json:"retry_max,omitempty"`
}

// StorageConfig controls the optional response store.
//
// Driver values: "sqlite" or "none"/empty (disabled).
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// IngestConfig controls the HTTP callback endpoint that translates
// button clicks into response events.
type IngestConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:3000"
}
