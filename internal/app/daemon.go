package app

import (
	"context"
	"errors"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"feedbot/internal/config"
	logx "feedbot/pkg/logx"
)

type daemonState struct {
	cron   *cron.Cron
	cancel context.CancelFunc
	sub    chan *config.Config
	wg     sync.WaitGroup
}

// Start enters scheduled mode: cron triggers runs, the config file is
// watched for changes, and systemd (when present) is told we're ready.
// It returns immediately; Stop tears everything down.
func (a *App) Start(ctx context.Context) error {
	cfg := a.manager.Get()
	spec, err := scheduleSpec(cfg.Schedule)
	if err != nil {
		return err
	}
	if a.daemon.cron != nil {
		return errors.New("already started")
	}

	wctx, cancel := context.WithCancel(ctx)
	a.daemon.cancel = cancel

	// Config hot reload. Runs rebuild their pipeline from the committed
	// config, so feed and limit changes land on the next trigger.
	sub := a.manager.Subscribe(1)
	a.daemon.sub = sub
	a.daemon.wg.Add(2)
	go func() {
		defer a.daemon.wg.Done()
		_ = a.manager.Watch(wctx)
	}()
	go func() {
		defer a.daemon.wg.Done()
		for {
			select {
			case <-wctx.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg, next)
				cfg = next
			}
		}
	}()

	// SkipIfStillRunning preserves the single-run-at-a-time assumption
	// the state store depends on: an overlapping trigger is dropped, not
	// queued behind a slow run.
	c := cron.New(
		cron.WithParser(scheduleParser()),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{a.log.With(logx.String("component", "cron"))})),
	)
	if _, err := c.AddFunc(spec, func() { a.runScheduled(wctx) }); err != nil {
		cancel()
		return err
	}
	a.daemon.cron = c
	c.Start()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready")
	}

	a.log.Info("scheduled mode started", logx.String("schedule", spec))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.daemon.cron == nil {
		return nil
	}
	if a.daemon.cancel != nil {
		a.daemon.cancel()
	}
	// cron.Stop's context completes once in-flight runs return.
	stopped := a.daemon.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		a.log.Warn("stop deadline hit while a run was in flight")
	}
	a.daemon.cron = nil
	a.manager.Unsubscribe(a.daemon.sub)
	a.daemon.sub = nil
	a.daemon.wg.Wait()
	a.log.Info("scheduled mode stopped")
	return nil
}

func (a *App) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	r, err := a.runner(a.manager.Get())
	if err != nil {
		a.log.Error("run skipped: bad config", logx.Err(err))
		return
	}
	if _, err := r.Run(ctx); err != nil {
		a.log.Error("run failed", logx.Err(err))
	}
}

// applyConfig reacts to a reloaded config between runs. Logging changes
// apply immediately; transport and storage identities need a restart.
func (a *App) applyConfig(old, next *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   next.Logging.Level,
		Console: next.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: next.Logging.File.Enabled,
			Path:    next.Logging.File.Path,
		},
	})

	if old.Telegram.Token != next.Telegram.Token || old.Telegram.ChatID != next.Telegram.ChatID {
		a.log.Warn("telegram target changed in config; restart required to take effect")
	}
	if old.State != next.State {
		a.log.Warn("state store changed in config; restart required to take effect")
	}
	if old.Schedule != next.Schedule {
		a.log.Warn("schedule changed in config; restart required to take effect")
	}
	a.log.Info("config applied", logx.Int("feeds", len(next.Feeds.URLs)))
}
