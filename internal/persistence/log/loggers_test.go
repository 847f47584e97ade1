package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"advancedentitylimit/internal/limits"
)

func readBack(t *testing.T, dir string) []limits.DecisionRecord {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "decisions", "decisions-*.jsonl.zst"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("files = %v, want one hourly file", matches)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var out []limits.DecisionRecord
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var rec limits.DecisionRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestDecisionLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewDecisionLogger(dir)

	for i, allowed := range []bool{true, false, true} {
		l.RecordDecision(limits.DecisionRecord{
			ID:       string(rune('a' + i)),
			At:       time.Now().UTC(),
			User:     7,
			Category: "assets/prefabs/deployable/furnace/furnace.prefab",
			Tier:     limits.NamePrefix + "default",
			Decision: limits.Decision{Allowed: allowed, Limit: 2, Count: i},
		})
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	recs := readBack(t, dir)
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	if recs[1].Allowed || recs[1].Count != 1 {
		t.Fatalf("second record = %+v", recs[1])
	}
}

func TestWriterAppendsWithinSameHour(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "test")

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "test-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("files = %v err = %v, want one", matches, err)
	}
}
