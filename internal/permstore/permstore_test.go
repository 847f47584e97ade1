package permstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGrantRevoke(t *testing.T) {
	s := New()
	if s.HasCapability(1, "advancedentitylimit.admin") {
		t.Fatalf("fresh store has grants")
	}

	s.Grant(1, "advancedentitylimit.admin")
	if !s.HasCapability(1, "advancedentitylimit.admin") {
		t.Fatalf("grant did not apply")
	}
	if s.HasCapability(2, "advancedentitylimit.admin") {
		t.Fatalf("grant leaked to another user")
	}

	s.Revoke(1, "advancedentitylimit.admin")
	if s.HasCapability(1, "advancedentitylimit.admin") {
		t.Fatalf("revoke did not apply")
	}

	// Revoking an absent grant is a no-op.
	s.Revoke(3, "advancedentitylimit.ui")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.yaml")
	body := `
76561198000000001:
  - advancedentitylimit.default
  - advancedentitylimit.ui
76561198000000002:
  - advancedentitylimit.admin
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !s.HasCapability(76561198000000001, "advancedentitylimit.ui") {
		t.Fatalf("missing loaded grant")
	}
	if !s.HasCapability(76561198000000002, "advancedentitylimit.admin") {
		t.Fatalf("missing loaded admin grant")
	}
	if s.HasCapability(76561198000000001, "advancedentitylimit.admin") {
		t.Fatalf("grant crossed users")
	}
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.HasCapability(1, "anything") {
		t.Fatalf("empty store has grants")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.yaml")
	if err := os.WriteFile(path, []byte("{{not yaml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("bad yaml accepted")
	}
}
