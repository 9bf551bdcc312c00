// Package pipeline is the heart of feedbot: it turns raw feed entries
// into fingerprinted messages, decides what this run may deliver, and
// drives the dispatch loop while committing state only for items that
// actually went out.
package pipeline
