package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"feedbot/internal/feed"
	"feedbot/internal/state"
	logx "feedbot/pkg/logx"
)

// Aggregator supplies one run's candidate items.
type Aggregator interface {
	Aggregate(ctx context.Context) []feed.Item
}

// Messenger performs a single synchronous send to the destination chat.
// No retries here: a transport error halts the run's remaining sends.
type Messenger interface {
	Send(ctx context.Context, text string, disablePreview bool) error
}

// Options resolve the configuration a run needs.
type Options struct {
	Limits Limits

	// SeenLimit bounds the persisted fingerprint set; 0 keeps everything.
	SeenLimit int

	// Pace is the minimum delay between consecutive sends; <= 0 disables
	// pacing.
	Pace time.Duration

	DisablePreview bool
}

// Result reports what one run did. A halted run is not a process
// failure: sent items are committed and unsent ones stay eligible.
type Result struct {
	Candidates int
	Planned    int
	Sent       int
	Halted     bool
}

// Runner orchestrates one full run. It exclusively owns the seen set
// between Load and Save; no concurrent run may share the same store.
type Runner struct {
	agg   Aggregator
	store state.Store
	msgr  Messenger
	opts  Options
	log   logx.Logger
}

func NewRunner(agg Aggregator, store state.Store, msgr Messenger, opts Options, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{agg: agg, store: store, msgr: msgr, opts: opts, log: log}
}

// Run executes fetch → plan → dispatch → commit. State is written
// exactly once, after dispatch finishes or halts, and only when at
// least one item was delivered.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()

	fps, err := r.store.Load(ctx)
	if err != nil {
		// Unreadable state risks one round of duplicates; aborting would
		// deliver nothing forever.
		r.log.Warn("state load failed; starting with empty seen set", logx.Err(err))
		fps = nil
	}
	seen := state.NewSeenSet(fps, r.opts.SeenLimit)

	items := r.agg.Aggregate(ctx)
	res.Candidates = len(items)
	if len(items) == 0 {
		r.log.Info("no candidates from any source; state untouched")
		return res, nil
	}

	plan := Plan(items, seen, r.opts.Limits)
	res.Planned = len(plan)
	r.log.Info("run planned",
		logx.Int("candidates", res.Candidates),
		logx.Int("planned", res.Planned),
		logx.Int("seen", seen.Len()))

	var limiter *rate.Limiter
	if r.opts.Pace > 0 {
		limiter = rate.NewLimiter(rate.Every(r.opts.Pace), 1)
	}

	delivered := make([]string, 0, len(plan))
	for _, m := range plan {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				res.Halted = true
				break
			}
		}
		if err := r.msgr.Send(ctx, m.Text, r.opts.DisablePreview); err != nil {
			// Stop here: retrying or continuing could double-deliver on
			// the next run. Unsent fingerprints were never marked seen.
			r.log.Error("send failed; halting remaining dispatch",
				logx.String("source", m.SourceName),
				logx.String("link", m.Link),
				logx.Err(err))
			res.Halted = true
			break
		}
		delivered = append(delivered, m.Fingerprint)
		res.Sent++
	}

	if len(delivered) > 0 {
		for _, fp := range delivered {
			seen.Add(fp)
		}
		// The cancellation that halted dispatch must not also abort the
		// commit: delivered items have to reach the store or they get
		// re-sent next run.
		if err := r.store.Save(context.WithoutCancel(ctx), seen.Fingerprints()); err != nil {
			return res, fmt.Errorf("persist seen set: %w", err)
		}
	}

	r.log.Info("run finished",
		logx.Int("sent", res.Sent),
		logx.Bool("halted", res.Halted),
		logx.Duration("took", time.Since(started)))
	return res, nil
}
