package limits

import "testing"

type permSet map[uint64]map[string]bool

func (p permSet) HasCapability(user uint64, name string) bool { return p[user][name] }

func grants(perms ...string) map[string]bool {
	m := make(map[string]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return m
}

func TestResolveHighestPriorityWins(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"default", "vip", "admin"} {
		if _, err := s.Create(NamePrefix+name, 10); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	// Grant order must not matter; only priority does.
	for _, perms := range [][]string{
		{NamePrefix + "default", NamePrefix + "vip"},
		{NamePrefix + "vip", NamePrefix + "default"},
	} {
		checker := permSet{1: grants(perms...)}
		tier := s.Resolve(checker, 1)
		if tier == nil || tier.Name != NamePrefix+"vip" {
			t.Fatalf("resolved %v for grants %v, want vip", tier, perms)
		}
	}

	checker := permSet{1: grants(NamePrefix+"default", NamePrefix+"vip", NamePrefix+"admin")}
	if tier := s.Resolve(checker, 1); tier == nil || tier.Name != NamePrefix+"admin" {
		t.Fatalf("resolved %v, want admin", tier)
	}
}

func TestResolveTieBreakByCreationOrder(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create(NamePrefix+"default", 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(NamePrefix+"vip", 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Cloning default yields priority 1, the same as vip; the clone was
	// created later, so it wins the tie.
	if _, err := s.Clone(NamePrefix+"vip2", NamePrefix+"default"); err != nil {
		t.Fatalf("clone: %v", err)
	}

	checker := permSet{1: grants(NamePrefix+"vip", NamePrefix+"vip2")}
	tier := s.Resolve(checker, 1)
	if tier == nil {
		t.Fatalf("resolved nil")
	}
	if tier.Name != NamePrefix+"vip2" {
		t.Fatalf("resolved %s, want vip2", tier.Name)
	}
}

func TestResolveNoneFailsClosed(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create(NamePrefix+"default", 10); err != nil {
		t.Fatalf("create: %v", err)
	}

	if tier := s.Resolve(permSet{}, 1); tier != nil {
		t.Fatalf("resolved %v for user with no grants, want nil", tier)
	}

	_, _, _, ok := s.ResolveLimit(permSet{}, 1, "anything")
	if ok {
		t.Fatalf("ResolveLimit ok for user with no grants")
	}
}
