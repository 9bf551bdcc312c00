package pipeline

import (
	"sort"

	"feedbot/internal/feed"
	"feedbot/internal/state"
)

// Limits bound one run's plan.
type Limits struct {
	// MaxItems caps the plan; <= 0 means unlimited.
	MaxItems int

	// OnePerSource allows at most one delivered item per feed per run.
	OnePerSource bool

	// SummaryLimit is the displayed summary budget in runes; 0 uses the
	// default.
	SummaryLimit int
}

// Plan normalizes all candidates, orders them oldest-first by
// best-effort timestamp (missing timestamps sort oldest), and selects
// the dispatch sequence: unseen fingerprints only, optionally one item
// per source, capped at MaxItems. Selected fingerprints are pending —
// the run controller commits them only after a successful send.
func Plan(items []feed.Item, seen *state.SeenSet, lim Limits) []Message {
	msgs := make([]Message, 0, len(items))
	for _, it := range items {
		msgs = append(msgs, Normalize(it, lim.SummaryLimit))
	}
	// Stable so equal timestamps keep their fetch order.
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Published.Before(msgs[j].Published)
	})

	var plan []Message
	pending := map[string]struct{}{}
	usedSource := map[string]struct{}{}
	for _, m := range msgs {
		if lim.MaxItems > 0 && len(plan) >= lim.MaxItems {
			break
		}
		if m.degenerate {
			continue
		}
		if seen != nil && seen.Has(m.Fingerprint) {
			continue
		}
		if _, dup := pending[m.Fingerprint]; dup {
			continue
		}
		if lim.OnePerSource {
			if _, used := usedSource[m.SourceName]; used {
				continue
			}
		}
		plan = append(plan, m)
		pending[m.Fingerprint] = struct{}{}
		if lim.OnePerSource {
			usedSource[m.SourceName] = struct{}{}
		}
	}
	return plan
}
