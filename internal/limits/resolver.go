package limits

// PermissionChecker is the authorization surface the engine depends on.
// Whatever access-control subsystem the host provides implements it.
type PermissionChecker interface {
	HasCapability(user uint64, name string) bool
}

// Resolve returns the highest-priority tier the user holds, or nil if the
// user holds none. Callers must treat nil as "deny all quota-gated
// actions", never as "no limit".
func (s *Store) Resolve(perms PermissionChecker, user uint64) *Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(perms, user)
}

func (s *Store) resolveLocked(perms PermissionChecker, user uint64) *Tier {
	var match *Tier
	for _, t := range s.sortedLocked() {
		if perms.HasCapability(user, t.Name) {
			match = t
		}
	}
	return match
}

// ResolveLimit resolves the user's tier and that tier's quota for a
// category in one locked step, so an evaluation never observes a tier map
// mid-edit. ok=false means the user holds no tier; quotaApplies=false means
// the category is exempt or unknown in the resolved tier.
func (s *Store) ResolveLimit(perms PermissionChecker, user uint64, category string) (tierName string, limit int, quotaApplies, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.resolveLocked(perms, user)
	if t == nil {
		return "", 0, false, false
	}
	limit, quotaApplies = t.LimitFor(category)
	return t.Name, limit, quotaApplies, true
}
