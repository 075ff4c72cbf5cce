package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := Record{
			RunID:       "run-" + string(rune('a'+i)),
			Device:      "/dev/sda1",
			Variant:     "v1",
			StartedAt:   base.Add(time.Duration(i) * time.Hour),
			Changed:     i%2 == 0,
			ExitCode:    3,
			Directories: 1,
			Files:       i,
		}
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	recent, err := store.Recent("/dev/sda1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].Files != 2 {
		t.Fatalf("newest record Files = %d, want 2 (most recent first)", recent[0].Files)
	}
	if !recent[0].Changed {
		t.Fatalf("expected the newest record's Changed flag to round-trip true")
	}
}

func TestRecentFiltersByDevice(t *testing.T) {
	store := openTestStore(t)

	if err := store.Append(Record{RunID: "a", Device: "/dev/sda1", Variant: "v1", StartedAt: time.Now()}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(Record{RunID: "b", Device: "/dev/sdb1", Variant: "v2", StartedAt: time.Now()}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	recent, err := store.Recent("/dev/sdb1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].RunID != "b" {
		t.Fatalf("expected only the sdb1 record, got %+v", recent)
	}
}
