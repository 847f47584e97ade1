package snapshot

import (
	"path/filepath"
	"testing"

	"advancedentitylimit/internal/limits"
)

func buildStore(t *testing.T) *limits.Store {
	t.Helper()
	s := limits.NewStore()
	s.SetCatalog(map[string]string{
		"assets/prefabs/deployable/furnace/furnace.prefab": "-1999722522",
		"assets/prefabs/building core/wall/wall.prefab":    "assets/prefabs/building core/wall/wall.png",
	})
	if _, err := s.Create(limits.NamePrefix+"default", 50); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Clone(limits.NamePrefix+"vip", limits.NamePrefix+"default"); err != nil {
		t.Fatalf("clone: %v", err)
	}
	if err := s.SetLimit(limits.NamePrefix+"vip", "assets/prefabs/deployable/furnace/furnace.prefab", 7); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	if err := s.SetEnabled(limits.NamePrefix+"default", "assets/prefabs/building core/wall/wall.prefab", false); err != nil {
		t.Fatalf("set enabled: %v", err)
	}
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	src := buildStore(t)
	path := filepath.Join(t.TempDir(), "tiers.json.zst")

	if err := Write(path, FromTiers(src.Export())); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.Header.Version != 1 || doc.Header.SavedAt == "" {
		t.Fatalf("header = %+v", doc.Header)
	}
	if len(doc.Tiers) != 2 {
		t.Fatalf("tiers = %d, want 2", len(doc.Tiers))
	}

	restored := limits.NewStore()
	restored.Restore(ToTiers(doc))

	vip, ok := restored.Get(limits.NamePrefix + "vip")
	if !ok || vip.Priority != 1 {
		t.Fatalf("vip = %+v", vip)
	}
	if lim, _ := vip.LimitFor("assets/prefabs/deployable/furnace/furnace.prefab"); lim != 7 {
		t.Fatalf("vip furnace limit = %d, want 7", lim)
	}
	def, _ := restored.Get(limits.NamePrefix + "default")
	if _, applies := def.LimitFor("assets/prefabs/building core/wall/wall.prefab"); applies {
		t.Fatalf("disabled wall entry restored as enabled")
	}
}

func TestReadMissingFileYieldsEmptyDocument(t *testing.T) {
	doc, err := Read(filepath.Join(t.TempDir(), "absent.json.zst"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(doc.Tiers) != 0 {
		t.Fatalf("tiers = %v, want none", doc.Tiers)
	}
}

func TestWriteCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "tiers.json.zst")
	if err := Write(path, FromTiers(nil)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err != nil {
		t.Fatalf("read back: %v", err)
	}
}

func TestWriteOverwritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.json.zst")
	src := buildStore(t)
	if err := Write(path, FromTiers(src.Export())); err != nil {
		t.Fatalf("write: %v", err)
	}

	empty := limits.NewStore()
	if err := Write(path, FromTiers(empty.Export())); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	doc, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(doc.Tiers) != 0 {
		t.Fatalf("old tiers survived overwrite: %v", doc.Tiers)
	}
}
