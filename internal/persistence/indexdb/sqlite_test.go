package indexdb

import (
	"path/filepath"
	"testing"
	"time"

	"advancedentitylimit/internal/limits"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func decision(id string, user uint64, allowed bool) limits.DecisionRecord {
	return limits.DecisionRecord{
		ID:       id,
		At:       time.Now().UTC(),
		User:     user,
		Category: "assets/prefabs/deployable/furnace/furnace.prefab",
		Tier:     limits.NamePrefix + "default",
		Decision: limits.Decision{Allowed: allowed, Limit: 10, Count: 3},
	}
}

func TestRecordDecisionAndCount(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordDecision(decision("d1", 1, true))
	idx.RecordDecision(decision("d2", 1, false))
	idx.RecordDecision(decision("d3", 2, true))
	idx.Sync()

	if n, err := idx.CountDecisions(0); err != nil || n != 3 {
		t.Fatalf("count all = %d/%v, want 3", n, err)
	}
	if n, err := idx.CountDecisions(1); err != nil || n != 2 {
		t.Fatalf("count user 1 = %d/%v, want 2", n, err)
	}
	if n, err := idx.CountDecisions(42); err != nil || n != 0 {
		t.Fatalf("count user 42 = %d/%v, want 0", n, err)
	}
}

func TestRecordDecisionIdempotentByID(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordDecision(decision("same", 1, true))
	idx.RecordDecision(decision("same", 1, true))
	idx.Sync()

	if n, err := idx.CountDecisions(0); err != nil || n != 1 {
		t.Fatalf("count = %d/%v, want 1 (replaced by id)", n, err)
	}
}

func TestRecordEditAndSnapshot(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordEdit(9, limits.NamePrefix+"default", "furnace.prefab", "limit", "7")
	idx.RecordSnapshot("/data/tiers.json.zst", 3)
	idx.Sync()

	var edits, snaps int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM tier_edits`).Scan(&edits); err != nil {
		t.Fatalf("query edits: %v", err)
	}
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&snaps); err != nil {
		t.Fatalf("query snapshots: %v", err)
	}
	if edits != 1 || snaps != 1 {
		t.Fatalf("edits = %d snaps = %d, want 1/1", edits, snaps)
	}
}

func TestCloseIsIdempotentAndWritesAfterCloseAreDropped(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// Must not panic on a closed index.
	idx.RecordDecision(decision("late", 1, true))
	idx.RecordEdit(1, "t", "c", "f", "v")
	idx.RecordSnapshot("p", 0)
	idx.Sync()
}

func TestReopenSeesPersistedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	idx.RecordDecision(decision("d1", 1, true))
	idx.Sync()
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if n, err := again.CountDecisions(0); err != nil || n != 1 {
		t.Fatalf("count after reopen = %d/%v, want 1", n, err)
	}
}
