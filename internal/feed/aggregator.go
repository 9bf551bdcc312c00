package feed

import (
	"context"

	logx "feedbot/pkg/logx"
)

// Aggregator fetches every configured feed sequentially and merges the
// results into one candidate list. One failing source contributes zero
// items and never aborts the run; ordering across sources is left to
// the delivery planner.
type Aggregator struct {
	fetcher *Fetcher
	urls    []string
	log     logx.Logger
}

func NewAggregator(fetcher *Fetcher, urls []string, log logx.Logger) *Aggregator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Aggregator{fetcher: fetcher, urls: urls, log: log}
}

func (a *Aggregator) Aggregate(ctx context.Context) []Item {
	var merged []Item
	for _, u := range a.urls {
		if ctx.Err() != nil {
			break
		}
		src, items, err := a.fetcher.Fetch(ctx, u)
		if err != nil {
			a.log.Warn("feed fetch failed", logx.String("url", u), logx.Err(err))
			continue
		}
		a.log.Debug("feed fetched",
			logx.String("source", src.Name),
			logx.String("url", u),
			logx.Int("items", len(items)))
		merged = append(merged, items...)
	}
	return merged
}
