package state

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	logx "feedbot/pkg/logx"
)

func openTestSQLite(t *testing.T) Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestSQLite(t)
	ctx := context.Background()

	want := []string{"fp1", "fp2", "fp3"}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip lost order: got %v, want %v", got, want)
	}
}

func TestSQLiteStoreSaveReplaces(t *testing.T) {
	t.Parallel()
	st := openTestSQLite(t)
	ctx := context.Background()

	if err := st.Save(ctx, []string{"fp1", "fp2", "fp3"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	want := []string{"fp2", "fp3", "fp4"}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("second save must replace, got %v, want %v", got, want)
	}
}

func TestSQLiteStoreSkipsEmptyFingerprints(t *testing.T) {
	t.Parallel()
	st := openTestSQLite(t)
	ctx := context.Background()

	if err := st.Save(ctx, []string{"", "fp1", "", "fp2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"fp1", "fp2"}) {
		t.Fatalf("empty fingerprints must not be stored, got %v", got)
	}
}

func TestSQLiteStoreFreshDatabaseIsEmpty(t *testing.T) {
	t.Parallel()
	st := openTestSQLite(t)
	got, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}
