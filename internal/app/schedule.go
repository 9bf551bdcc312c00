package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "feedbot/pkg/logx"
)

func scheduleParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// scheduleSpec accepts either a plain Go duration ("30m") or a cron
// expression ("*/15 * * * *", "@hourly") and returns the spec handed to
// cron. Durations shorter than a second are rejected; they are always a
// typo for a feed poller.
func scheduleSpec(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errors.New("schedule is empty")
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < time.Second {
			return "", fmt.Errorf("schedule %q: interval too short", raw)
		}
		return "@every " + d.String(), nil
	}
	if _, err := scheduleParser().Parse(s); err != nil {
		return "", fmt.Errorf("schedule %q: %w", raw, err)
	}
	return s, nil
}

// cronLogger adapts logx to cron's logging interface. cron only speaks
// up for lifecycle noise and skipped overlapping runs.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug(msg, logx.Any("detail", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Warn(msg, logx.Err(err), logx.Any("detail", kv))
}
