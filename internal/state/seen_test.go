package state

import (
	"reflect"
	"testing"
)

func TestSeenSetEvictsOldestFirst(t *testing.T) {
	t.Parallel()
	s := NewSeenSet(nil, 3)
	for _, fp := range []string{"a", "b", "c", "d", "e"} {
		s.Add(fp)
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	if got := s.Fingerprints(); !reflect.DeepEqual(got, []string{"c", "d", "e"}) {
		t.Fatalf("got %v, want newest three in order", got)
	}
	if s.Has("a") || s.Has("b") {
		t.Fatal("evicted fingerprints must not be reported as seen")
	}
	if !s.Has("e") {
		t.Fatal("newest fingerprint missing")
	}
}

func TestSeenSetIgnoresDuplicatesAndEmpties(t *testing.T) {
	t.Parallel()
	s := NewSeenSet([]string{"a", "", "a", "b"}, 0)
	if got := s.Fingerprints(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %v, want [a b]", got)
	}
	s.Add("b")
	if s.Len() != 2 {
		t.Fatalf("re-adding must not grow the set: %v", s.Fingerprints())
	}
}

func TestSeenSetTrimsPersistedOverflow(t *testing.T) {
	t.Parallel()
	// A lowered limit takes effect on load: only the newest entries stay.
	s := NewSeenSet([]string{"1", "2", "3", "4"}, 2)
	if got := s.Fingerprints(); !reflect.DeepEqual(got, []string{"3", "4"}) {
		t.Fatalf("got %v, want newest two", got)
	}
}

func TestSeenSetUnbounded(t *testing.T) {
	t.Parallel()
	s := NewSeenSet(nil, 0)
	for _, fp := range []string{"a", "b", "c"} {
		s.Add(fp)
	}
	if s.Len() != 3 {
		t.Fatalf("unbounded set must keep everything, len = %d", s.Len())
	}
}
