// Package permstore is a small in-memory permission registry implementing
// the engine's authorization contract. The host environment may substitute
// its own access-control subsystem.
package permstore

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type Store struct {
	mu     sync.RWMutex
	grants map[uint64]map[string]bool
}

func New() *Store {
	return &Store{grants: make(map[uint64]map[string]bool)}
}

// Load reads a grants file mapping user id to permission list. A missing
// file yields an empty store.
func Load(path string) (*Store, error) {
	s := New()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	var doc map[uint64][]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("grants: %w", err)
	}
	for user, perms := range doc {
		for _, p := range perms {
			s.Grant(user, p)
		}
	}
	return s, nil
}

func (s *Store) Grant(user uint64, perm string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.grants[user]
	if !ok {
		m = make(map[string]bool)
		s.grants[user] = m
	}
	m[perm] = true
}

func (s *Store) Revoke(user uint64, perm string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.grants[user]; ok {
		delete(m, perm)
	}
}

func (s *Store) HasCapability(user uint64, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grants[user][name]
}
