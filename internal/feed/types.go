package feed

import "time"

// Source identifies one configured feed for the duration of a run.
// Name is resolved at fetch time from the feed's own declared title,
// falling back to the host of the first entry's link.
type Source struct {
	Name string
	URL  string
}

// Item is one entry retrieved from a source. Title and Summary are raw
// (Summary may carry HTML); Published is best-effort and zero when the
// feed declares no usable timestamp. Items only live within a run.
type Item struct {
	Title     string
	Summary   string
	Link      string
	Published time.Time
	Source    Source
}
