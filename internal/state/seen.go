package state

// SeenSet is an ordered, size-bounded collection of fingerprints.
// Insertion order is preserved so the oldest entries are evicted first
// when the bound is exceeded. It is not safe for concurrent use; a run
// owns its SeenSet exclusively.
type SeenSet struct {
	limit int
	order []string
	index map[string]struct{}
}

// NewSeenSet builds a set from persisted fingerprints, dropping
// duplicates and empty strings while preserving order, then trimming
// to the newest limit entries. limit <= 0 means unbounded.
func NewSeenSet(fingerprints []string, limit int) *SeenSet {
	s := &SeenSet{limit: limit, index: make(map[string]struct{}, len(fingerprints))}
	for _, fp := range fingerprints {
		s.Add(fp)
	}
	return s
}

func (s *SeenSet) Has(fp string) bool {
	_, ok := s.index[fp]
	return ok
}

// Add appends fp, evicting the oldest entries once the bound is
// exceeded. Empty and already-present fingerprints are ignored.
func (s *SeenSet) Add(fp string) {
	if fp == "" || s.Has(fp) {
		return
	}
	s.order = append(s.order, fp)
	s.index[fp] = struct{}{}
	if s.limit > 0 && len(s.order) > s.limit {
		evicted := s.order[:len(s.order)-s.limit]
		for _, old := range evicted {
			delete(s.index, old)
		}
		s.order = append([]string(nil), s.order[len(s.order)-s.limit:]...)
	}
}

func (s *SeenSet) Len() int { return len(s.order) }

// Fingerprints returns the fingerprints oldest-first.
func (s *SeenSet) Fingerprints() []string {
	return append([]string(nil), s.order...)
}
