// Package app wires configuration, logging, state, the Telegram sender
// and the pipeline together, and runs the bridge either once or on a
// schedule.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedbot/internal/config"
	"feedbot/internal/feed"
	"feedbot/internal/pipeline"
	"feedbot/internal/state"
	"feedbot/internal/telegram"
	logx "feedbot/pkg/logx"
)

const (
	defaultStatePath   = "./state.json"
	defaultFeedTimeout = 10 * time.Second
	defaultPace        = 1200 * time.Millisecond
	defaultMaxPerRun   = 10
	defaultSeenLimit   = 300
)

type App struct {
	manager *config.Manager
	logSvc  *logx.Service
	log     logx.Logger

	sender *telegram.Sender
	store  state.Store

	daemon daemonState
}

// New loads and validates the config and opens every collaborator.
// Failures here are the fatal class: nothing has touched state yet.
func New(cfgPath string) (*App, error) {
	m := config.NewManager(cfgPath)
	cfg, err := m.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	m.SetLogger(log.With(logx.String("component", "config")))

	sender, err := telegram.New(telegram.Config{
		Token:  cfg.Telegram.Token,
		ChatID: cfg.Telegram.ChatID,
	}, log.With(logx.String("component", "telegram")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	store, err := state.Open(stateConfig(cfg), log.With(logx.String("component", "state")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("state: %w", err)
	}

	return &App{
		manager: m,
		logSvc:  logSvc,
		log:     log,
		sender:  sender,
		store:   store,
	}, nil
}

// Scheduled reports whether the config asks for a long-lived process.
func (a *App) Scheduled() bool {
	cfg := a.manager.Get()
	return cfg != nil && strings.TrimSpace(cfg.Schedule) != ""
}

// RunOnce executes a single pass with the current config.
func (a *App) RunOnce(ctx context.Context) error {
	r, err := a.runner(a.manager.Get())
	if err != nil {
		return err
	}
	res, err := r.Run(ctx)
	if err != nil {
		return err
	}
	if res.Halted {
		a.log.Warn("run halted early; unsent items stay eligible",
			logx.Int("sent", res.Sent),
			logx.Int("planned", res.Planned))
	}
	return nil
}

func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
		a.logSvc = nil
	}
	return err
}

// runner builds a fresh pipeline from cfg so daemon-mode reloads take
// effect on the next run without tearing anything down.
func (a *App) runner(cfg *config.Config) (*pipeline.Runner, error) {
	timeout, err := config.ParseDurationOrDefault("feeds.timeout", cfg.Feeds.Timeout, defaultFeedTimeout)
	if err != nil {
		return nil, err
	}
	pace, err := config.ParseDurationOrDefault("run.pace", cfg.Run.Pace, defaultPace)
	if err != nil {
		return nil, err
	}

	fetcher := feed.NewFetcher(timeout, cfg.Feeds.UserAgent)
	agg := feed.NewAggregator(fetcher, cfg.Feeds.URLs, a.log.With(logx.String("component", "feed")))

	maxItems := cfg.Run.MaxPerRun
	if maxItems == 0 {
		maxItems = defaultMaxPerRun
	}
	seenLimit := cfg.Run.SeenLimit
	if seenLimit == 0 {
		seenLimit = defaultSeenLimit
	}

	opts := pipeline.Options{
		Limits: pipeline.Limits{
			MaxItems:     maxItems,
			OnePerSource: cfg.Run.OnePerSource,
			SummaryLimit: cfg.Run.SummaryLimit,
		},
		SeenLimit:      seenLimit,
		Pace:           pace,
		DisablePreview: cfg.Telegram.DisablePreview,
	}
	return pipeline.NewRunner(agg, a.store, a.sender, opts, a.log.With(logx.String("component", "run"))), nil
}

func stateConfig(cfg *config.Config) state.Config {
	path := strings.TrimSpace(cfg.State.Path)
	if path == "" {
		path = defaultStatePath
	}
	busy, _ := config.ParseDurationField("state.busy_timeout", cfg.State.BusyTimeout)
	return state.Config{Driver: cfg.State.Driver, Path: path, BusyTimeout: busy}
}
