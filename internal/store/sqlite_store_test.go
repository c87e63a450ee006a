package store

import (
	"fmt"
	"testing"
	"time"
)

// =============================================================================
// Version History Tests (SQLite only)
// =============================================================================

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteVersions(t *testing.T) {
	s := newTestSQLiteStore(t)

	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	for i := 1; i <= 3; i++ {
		if err := s.Put("novel_stories", []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
	}

	versions, err := s.ListVersions("novel_stories")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	if versions[0].Version != 3 || !versions[0].IsCurrent {
		t.Errorf("newest version should be current: %+v", versions[0])
	}
	if versions[1].IsCurrent || versions[1].ValidTo == nil {
		t.Errorf("older version should be closed: %+v", versions[1])
	}
	if versions[2].Size != 2 {
		t.Errorf("Size mismatch: got %d, want 2", versions[2].Size)
	}

	old, err := s.GetVersion("novel_stories", 1)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if string(old) != "v1" {
		t.Errorf("GetVersion mismatch: got %s, want v1", old)
	}

	current, err := s.Get("novel_stories")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(current) != "v3" {
		t.Errorf("Get mismatch: got %s, want v3", current)
	}
}

func TestSQLiteVersionRetention(t *testing.T) {
	s := newTestSQLiteStore(t)
	s.SetKeepVersions(2)

	for i := 1; i <= 5; i++ {
		if err := s.Put("k", []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
	}

	versions, err := s.ListVersions("k")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 retained versions, got %d", len(versions))
	}
	if versions[0].Version != 5 || versions[1].Version != 4 {
		t.Errorf("unexpected versions retained: %d, %d", versions[0].Version, versions[1].Version)
	}

	pruned, err := s.GetVersion("k", 1)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if pruned != nil {
		t.Errorf("expected pruned version to be nil, got %s", pruned)
	}
}

func TestDocumentHistory(t *testing.T) {
	s := newTestSQLiteStore(t)
	ds := NewDocumentStore(s)

	doc := sampleDocument()
	if err := ds.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	doc.Stories["story_1"].Name = "Renamed"
	if err := ds.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	history, err := ds.History()
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}

	first, err := ds.LoadVersion(1)
	if err != nil {
		t.Fatalf("LoadVersion failed: %v", err)
	}
	if first.Stories["story_1"].Name != "The Tower" {
		t.Errorf("Name mismatch: got %s, want The Tower", first.Stories["story_1"].Name)
	}

	if _, err := ds.LoadVersion(99); err == nil {
		t.Error("expected error for missing version")
	}
}

func TestDocumentHistory_UnversionedBackend(t *testing.T) {
	ds := NewDocumentStore(NewMemStore())

	history, err := ds.History()
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if history != nil {
		t.Errorf("expected nil history, got %v", history)
	}
	if _, err := ds.LoadVersion(1); err == nil {
		t.Error("expected error for unversioned backend")
	}
}
