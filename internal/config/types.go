package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Feeds    FeedsConfig    `json:"feeds"`
	Run      RunConfig      `json:"run,omitempty"`
	State    StateConfig    `json:"state,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`

	// Schedule makes feedbot a long-lived process: either a cron spec
	// (minute granularity, descriptors like "@hourly" allowed) or a Go
	// duration string for a fixed interval. Empty means run once and exit.
	Schedule string `json:"schedule,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`

	// DisablePreview turns off Telegram's link preview on every message.
	DisablePreview bool `json:"disable_preview,omitempty"`
}

type FeedsConfig struct {
	URLs []string `json:"urls"`

	// Timeout is a Go duration string per feed request (default "10s").
	Timeout string `json:"timeout,omitempty"`

	// UserAgent identifies feedbot to upstream feed servers.
	UserAgent string `json:"user_agent,omitempty"`
}

// RunConfig bounds a single run.
//
// Defaults (when fields are omitted/zero):
//   - max_per_run: 10
//   - seen_limit: 300
//   - pace: "1200ms"
//   - summary_limit: 280
type RunConfig struct {
	MaxPerRun int `json:"max_per_run,omitempty"`
	SeenLimit int `json:"seen_limit,omitempty"`

	// Pace is a Go duration string between consecutive sends.
	Pace string `json:"pace,omitempty"`

	// OnePerSource caps a run at one delivered item per feed.
	OnePerSource bool `json:"one_per_source,omitempty"`

	// SummaryLimit is the displayed summary budget in runes.
	SummaryLimit int `json:"summary_limit,omitempty"`
}

// StateConfig controls seen-set persistence.
//
// Driver values:
//   - "file" (default): one JSON record, written atomically
//   - "sqlite": SQLite database file
type StateConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`
	// Console is a pointer so we can distinguish "omitted" (default true)
	// from an explicit false.
	Console *bool       `json:"console,omitempty"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}

// Validate rejects configurations the run controller must never see.
// Anything caught here is fatal before any state is touched.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required")
	}
	if len(c.Feeds.URLs) == 0 {
		return errors.New("feeds.urls must list at least one feed")
	}
	for i, u := range c.Feeds.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("feeds.urls[%d] is empty", i)
		}
	}
	if c.Run.MaxPerRun < 0 {
		return errors.New("run.max_per_run must be >= 0")
	}
	if c.Run.SeenLimit < 0 {
		return errors.New("run.seen_limit must be >= 0")
	}
	if c.Run.SummaryLimit < 0 {
		return errors.New("run.summary_limit must be >= 0")
	}
	if _, err := ParseDurationField("feeds.timeout", c.Feeds.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("run.pace", c.Run.Pace); err != nil {
		return err
	}
	if _, err := ParseDurationField("state.busy_timeout", c.State.BusyTimeout); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.State.Driver)) {
	case "", "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("state.driver %q is not supported", c.State.Driver)
	}
	return nil
}
