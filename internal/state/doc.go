// Package state persists the set of fingerprints feedbot has already
// delivered, so a run never re-sends an item a past run posted.
//
// It currently supports:
//   - A single-record JSON file (default), written atomically
//   - A SQLite database file
package state
