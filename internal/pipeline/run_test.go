package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedbot/internal/feed"
	logx "feedbot/pkg/logx"
)

type fakeAgg struct{ items []feed.Item }

func (f fakeAgg) Aggregate(ctx context.Context) []feed.Item { return f.items }

type fakeStore struct {
	loaded  []string
	loadErr error
	saveErr error
	saved   [][]string
}

func (s *fakeStore) Load(ctx context.Context) ([]string, error) { return s.loaded, s.loadErr }
func (s *fakeStore) Save(ctx context.Context, fps []string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, append([]string(nil), fps...))
	return nil
}
func (s *fakeStore) Close() error { return nil }

type fakeMessenger struct {
	sent   []string
	failAt int // 1-based send index that fails; 0 never fails
}

func (m *fakeMessenger) Send(ctx context.Context, text string, disablePreview bool) error {
	if m.failAt > 0 && len(m.sent)+1 == m.failAt {
		return errors.New("telegram: 502 bad gateway")
	}
	m.sent = append(m.sent, text)
	return nil
}

func threeItems() []feed.Item {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return []feed.Item{
		timedItem("A", "https://e.com/a", "S", base),
		timedItem("B", "https://e.com/b", "S", base.Add(time.Minute)),
		timedItem("C", "https://e.com/c", "S", base.Add(2*time.Minute)),
	}
}

func fp(it feed.Item) string { return Normalize(it, 0).Fingerprint }

func TestRunSendsOldestFirstUpToCap(t *testing.T) {
	t.Parallel()
	items := threeItems()
	store := &fakeStore{}
	msgr := &fakeMessenger{}
	r := NewRunner(fakeAgg{items}, store, msgr, Options{
		Limits:    Limits{MaxItems: 2},
		SeenLimit: 300,
	}, logx.Nop())

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Sent != 2 || res.Halted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(store.saved) != 1 {
		t.Fatalf("state must be persisted exactly once, got %d writes", len(store.saved))
	}
	got := store.saved[0]
	want := []string{fp(items[0]), fp(items[1])}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("persisted %v, want %v", got, want)
	}

	// Next run picks up C and only C.
	store2 := &fakeStore{loaded: got}
	msgr2 := &fakeMessenger{}
	r2 := NewRunner(fakeAgg{items}, store2, msgr2, Options{
		Limits:    Limits{MaxItems: 2},
		SeenLimit: 300,
	}, logx.Nop())
	res2, err := r2.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res2.Sent != 1 {
		t.Fatalf("second run sent %d, want 1 (just C)", res2.Sent)
	}
	if len(store2.saved) != 1 || len(store2.saved[0]) != 3 {
		t.Fatalf("second run should persist all three fingerprints, got %v", store2.saved)
	}
}

func TestRunPartialFailureContainment(t *testing.T) {
	t.Parallel()
	items := threeItems()
	store := &fakeStore{}
	msgr := &fakeMessenger{failAt: 2}
	r := NewRunner(fakeAgg{items}, store, msgr, Options{SeenLimit: 300}, logx.Nop())

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("a dispatch failure is not a run error: %v", err)
	}
	if !res.Halted || res.Sent != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(store.saved) != 1 {
		t.Fatalf("state writes = %d, want 1", len(store.saved))
	}
	if got := store.saved[0]; len(got) != 1 || got[0] != fp(items[0]) {
		t.Fatalf("only the delivered item commits, got %v", got)
	}
}

func TestRunZeroCandidatesTouchesNothing(t *testing.T) {
	t.Parallel()
	store := &fakeStore{loaded: []string{"abc"}}
	msgr := &fakeMessenger{}
	r := NewRunner(fakeAgg{}, store, msgr, Options{SeenLimit: 300}, logx.Nop())

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Sent != 0 || len(msgr.sent) != 0 {
		t.Fatalf("nothing should be sent: %+v", res)
	}
	if len(store.saved) != 0 {
		t.Fatal("empty aggregate must not rewrite state")
	}
}

func TestRunNothingNewSkipsPersist(t *testing.T) {
	t.Parallel()
	items := threeItems()
	seen := []string{fp(items[0]), fp(items[1]), fp(items[2])}
	store := &fakeStore{loaded: seen}
	r := NewRunner(fakeAgg{items}, store, &fakeMessenger{}, Options{SeenLimit: 300}, logx.Nop())

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Sent != 0 || len(store.saved) != 0 {
		t.Fatalf("all-seen run must not send or persist: %+v saved=%v", res, store.saved)
	}
}

func TestRunBoundsSeenSet(t *testing.T) {
	t.Parallel()
	items := threeItems()
	store := &fakeStore{loaded: []string{"old1", "old2", "old3"}}
	r := NewRunner(fakeAgg{items}, store, &fakeMessenger{}, Options{SeenLimit: 4}, logx.Nop())

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("state writes = %d, want 1", len(store.saved))
	}
	got := store.saved[0]
	if len(got) != 4 {
		t.Fatalf("seen set size = %d, want 4", len(got))
	}
	// Oldest entries evicted first; the three fresh fingerprints survive.
	if got[0] != "old3" {
		t.Fatalf("expected old3 to be the oldest survivor, got %v", got)
	}
	for i, it := range items {
		if got[i+1] != fp(it) {
			t.Fatalf("delivered fingerprints must follow in order, got %v", got)
		}
	}
}

func TestRunRecoversFromLoadError(t *testing.T) {
	t.Parallel()
	items := threeItems()
	store := &fakeStore{loadErr: errors.New("disk on fire")}
	msgr := &fakeMessenger{}
	r := NewRunner(fakeAgg{items}, store, msgr, Options{SeenLimit: 300}, logx.Nop())

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("load failure must not abort the run: %v", err)
	}
	if res.Sent != 3 {
		t.Fatalf("sent %d, want 3 (empty seen set)", res.Sent)
	}
}

func TestRunSurfacesPersistError(t *testing.T) {
	t.Parallel()
	items := threeItems()
	store := &fakeStore{saveErr: errors.New("read-only fs")}
	r := NewRunner(fakeAgg{items}, store, &fakeMessenger{}, Options{SeenLimit: 300}, logx.Nop())

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("persist failure should be returned to the caller")
	}
}

// ctxStore refuses writes on a dead context, like a driver backed by
// database/sql would.
type ctxStore struct {
	fakeStore
}

func (s *ctxStore) Save(ctx context.Context, fps []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fakeStore.Save(ctx, fps)
}

type cancelingMessenger struct {
	fakeMessenger
	cancel context.CancelFunc
}

func (m *cancelingMessenger) Send(ctx context.Context, text string, disablePreview bool) error {
	if err := m.fakeMessenger.Send(ctx, text, disablePreview); err != nil {
		return err
	}
	if len(m.sent) == 1 {
		m.cancel()
	}
	return nil
}

func TestRunCommitsDeliveredAfterCancellation(t *testing.T) {
	t.Parallel()
	items := threeItems()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &ctxStore{}
	msgr := &cancelingMessenger{cancel: cancel}
	r := NewRunner(fakeAgg{items}, store, msgr, Options{
		SeenLimit: 300,
		Pace:      time.Millisecond,
	}, logx.Nop())

	res, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("halted run must still commit: %v", err)
	}
	if !res.Halted || res.Sent != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(store.saved) != 1 {
		t.Fatalf("state writes = %d, want 1", len(store.saved))
	}
	if got := store.saved[0]; len(got) != 1 || got[0] != fp(items[0]) {
		t.Fatalf("delivered prefix must persist, got %v", got)
	}
}

func TestRunPacingKeepsOrder(t *testing.T) {
	t.Parallel()
	items := threeItems()
	store := &fakeStore{}
	msgr := &fakeMessenger{}
	r := NewRunner(fakeAgg{items}, store, msgr, Options{SeenLimit: 300, Pace: time.Millisecond}, logx.Nop())

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(msgr.sent) != 3 {
		t.Fatalf("sent %d, want 3", len(msgr.sent))
	}
}
