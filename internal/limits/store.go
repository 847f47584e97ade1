package limits

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrTierExists       = errors.New("tier already exists")
	ErrTierNotFound     = errors.New("tier not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrBadName          = errors.New("tier name must start with " + NamePrefix)
	ErrBadLimit         = errors.New("limit must be >= 0")
)

// Store is the in-memory tier table. All reads and writes go through one
// RWMutex so catalog refreshes and tier edits never interleave with an
// evaluation reading a half-updated category map.
type Store struct {
	mu      sync.RWMutex
	tiers   map[string]*Tier
	nextSeq int

	// catalog is the current category -> icon mapping used to seed new
	// tiers and to additively merge into existing ones.
	catalog map[string]string
}

func NewStore() *Store {
	return &Store{
		tiers:   make(map[string]*Tier),
		catalog: make(map[string]string),
	}
}

// SetCatalog replaces the catalog used for seeding and refresh.
func (s *Store) SetCatalog(cats map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = cats
}

// Create adds a new tier populated from the current catalog with
// defaultLimit for every category. Priority is the tier count at creation
// time, so priorities increase monotonically with creation order.
func (s *Store) Create(name string, defaultLimit int) (*Tier, error) {
	if !strings.HasPrefix(name, NamePrefix) {
		return nil, ErrBadName
	}
	if defaultLimit < 0 {
		return nil, ErrBadLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tiers[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTierExists, name)
	}

	t := &Tier{
		Name:       name,
		Priority:   len(s.tiers),
		Categories: make(map[string]*LimitEntry, len(s.catalog)),
		seq:        s.nextSeq,
	}
	s.nextSeq++
	for key, icon := range s.catalog {
		t.Categories[key] = &LimitEntry{Icon: icon, Limit: defaultLimit, Limited: true}
	}
	s.tiers[name] = t
	return t, nil
}

// Clone adds a new tier whose category map is a deep copy of the source at
// clone time; the two tiers diverge independently afterwards. Priority is
// source priority + 1 so the clone outranks its source.
func (s *Store) Clone(name, sourceName string) (*Tier, error) {
	if !strings.HasPrefix(name, NamePrefix) {
		return nil, ErrBadName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tiers[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTierExists, name)
	}
	src, ok := s.tiers[sourceName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTierNotFound, sourceName)
	}

	t := src.clone(name)
	t.seq = s.nextSeq
	s.nextSeq++
	s.tiers[name] = t
	return t, nil
}

// Refresh merges the current catalog into every tier, adding newly
// discovered categories with defaultLimit. Existing entries are never
// changed or removed, so a second call right after the first is a no-op.
func (s *Store) Refresh(defaultLimit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, t := range s.tiers {
		for key, icon := range s.catalog {
			if _, ok := t.Categories[key]; ok {
				continue
			}
			t.Categories[key] = &LimitEntry{Icon: icon, Limit: defaultLimit, Limited: true}
			changed = true
		}
	}
	return changed
}

// SetLimit updates the stored limit for a category in a tier.
func (s *Store) SetLimit(tierName, category string, limit int) error {
	if limit < 0 {
		return ErrBadLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(tierName, category)
	if err != nil {
		return err
	}
	e.Limit = limit
	return nil
}

// SetEnabled toggles whether a category is quota-gated in a tier.
func (s *Store) SetEnabled(tierName, category string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(tierName, category)
	if err != nil {
		return err
	}
	e.Limited = enabled
	return nil
}

func (s *Store) entry(tierName, category string) (*LimitEntry, error) {
	t, ok := s.tiers[tierName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTierNotFound, tierName)
	}
	e, ok := t.Categories[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
	}
	return e, nil
}

// List returns tiers ordered by ascending priority, creation order breaking
// ties.
func (s *Store) List() []*Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

func (s *Store) sortedLocked() []*Tier {
	out := make([]*Tier, 0, len(s.tiers))
	for _, t := range s.tiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Get looks up a tier by name.
func (s *Store) Get(name string) (*Tier, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tiers[name]
	return t, ok
}

// Len reports the number of tiers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tiers)
}

// CategoryView is one row of a category page.
type CategoryView struct {
	Key     string `json:"key"`
	Icon    string `json:"icon"`
	Limit   int    `json:"limit"`
	Enabled bool   `json:"enabled"`
}

// CategoryPage is one page of a tier's category map.
type CategoryPage struct {
	Total int            `json:"total"`
	Items []CategoryView `json:"items"`
}

// Categories pages through a tier's category map, sorted by key, optionally
// filtered by a case-insensitive substring.
func (s *Store) Categories(tierName, search string, offset, limit int) (CategoryPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tiers[tierName]
	if !ok {
		return CategoryPage{}, fmt.Errorf("%w: %s", ErrTierNotFound, tierName)
	}

	needle := strings.ToLower(search)
	keys := make([]string, 0, len(t.Categories))
	for k := range t.Categories {
		if needle != "" && !strings.Contains(strings.ToLower(k), needle) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	page := CategoryPage{Total: len(keys)}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(keys) {
		return page, nil
	}
	end := len(keys)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	for _, k := range keys[offset:end] {
		e := t.Categories[k]
		page.Items = append(page.Items, CategoryView{Key: k, Icon: e.Icon, Limit: e.Limit, Enabled: e.Limited})
	}
	return page, nil
}

// Export returns a deep copy of all tiers for persistence.
func (s *Store) Export() []*Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Tier, 0, len(s.tiers))
	for _, t := range s.sortedLocked() {
		cp := t.clone(t.Name)
		cp.Priority = t.Priority
		cp.seq = t.seq
		out = append(out, cp)
	}
	return out
}

// Restore replaces the tier table with persisted state. Sequence numbers
// resume above the highest restored one.
func (s *Store) Restore(tiers []*Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tiers = make(map[string]*Tier, len(tiers))
	s.nextSeq = 0
	for _, t := range tiers {
		s.tiers[t.Name] = t
		if t.seq >= s.nextSeq {
			s.nextSeq = t.seq + 1
		}
	}
}

// RestoredTier builds a tier from persisted fields.
func RestoredTier(name string, priority, seq int, cats map[string]*LimitEntry) *Tier {
	if cats == nil {
		cats = make(map[string]*LimitEntry)
	}
	return &Tier{Name: name, Priority: priority, Categories: cats, seq: seq}
}
