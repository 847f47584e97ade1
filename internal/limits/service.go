package limits

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Decision is the outcome of one placement evaluation.
type Decision struct {
	Allowed bool `json:"allowed"`
	Limit   int  `json:"limit"`
	Count   int  `json:"count"`
}

// DecisionRecord is a Decision plus audit context, handed to sinks.
type DecisionRecord struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	User     uint64    `json:"user"`
	Category string    `json:"category"`
	Tier     string    `json:"tier,omitempty"`
	Decision
}

// DecisionSink receives every evaluation outcome. Sinks must not block and
// must not influence the decision.
type DecisionSink interface {
	RecordDecision(rec DecisionRecord)
}

// Pooler computes the set of users whose placements pool with a user.
type Pooler interface {
	Pool(user uint64) map[uint64]struct{}
}

// Counter counts live placed objects of a category owned by a user set.
type Counter interface {
	Count(owners map[uint64]struct{}, category string) int
}

// SaveFunc persists the full tier table. An error means the mutation is not
// durably applied.
type SaveFunc func(tiers []*Tier) error

// Options configures a Service.
type Options struct {
	Store   *Store
	Perms   PermissionChecker
	Pools   Pooler
	Counter Counter
	Save    SaveFunc
	Sinks   []DecisionSink
	Logger  *log.Logger

	// Rebuild recomputes the catalog from the registries (nil disables
	// RefreshCatalog).
	Rebuild func() (map[string]string, error)

	MessagePrefix string
	// LimitReachedMessage carries a single {0} placeholder for the limit.
	LimitReachedMessage string
	DefaultLimit        int
}

// Service is the explicit engine object handed to every collaborator that
// needs it; there is no package-level instance.
type Service struct {
	store   *Store
	perms   PermissionChecker
	pools   Pooler
	counter Counter
	save    SaveFunc
	sinks   []DecisionSink
	log     *log.Logger
	rebuild func() (map[string]string, error)

	prefix       string
	limitMsg     string
	defaultLimit int
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	dl := opts.DefaultLimit
	if dl <= 0 {
		dl = 10
	}
	msg := opts.LimitReachedMessage
	if msg == "" {
		msg = "You have reached the limit of this object ({0})"
	}
	return &Service{
		store:        opts.Store,
		perms:        opts.Perms,
		pools:        opts.Pools,
		counter:      opts.Counter,
		save:         opts.Save,
		sinks:        opts.Sinks,
		log:          logger,
		rebuild:      opts.Rebuild,
		prefix:       opts.MessagePrefix,
		limitMsg:     msg,
		defaultLimit: dl,
	}
}

// Store exposes the underlying tier table for read paths (listing, feeds).
func (s *Service) Store() *Store { return s.store }

// Evaluate decides whether user may place one more object of category.
func (s *Service) Evaluate(user uint64, category string) Decision {
	// Objects outside the tracked catalog are never limited.
	if category == "" {
		return Decision{Allowed: true}
	}

	tierName, limit, quotaApplies, ok := s.store.ResolveLimit(s.perms, user, category)
	if !ok {
		s.log.Printf("user %d holds no limit tier, placement denied", user)
		d := Decision{Allowed: false, Limit: -1}
		s.record(user, category, "", d)
		return d
	}
	if !quotaApplies {
		// Exempt or untracked in this tier; skip the world scan entirely.
		d := Decision{Allowed: true}
		s.record(user, category, tierName, d)
		return d
	}

	pool := s.pools.Pool(user)
	count := s.counter.Count(pool, category)
	d := Decision{Allowed: count < limit, Limit: limit, Count: count}
	s.record(user, category, tierName, d)
	return d
}

func (s *Service) record(user uint64, category, tier string, d Decision) {
	if len(s.sinks) == 0 {
		return
	}
	rec := DecisionRecord{
		ID:       uuid.NewString(),
		At:       time.Now().UTC(),
		User:     user,
		Category: category,
		Tier:     tier,
		Decision: d,
	}
	for _, sink := range s.sinks {
		sink.RecordDecision(rec)
	}
}

// LimitMessage renders the user-facing denial message for a limit.
func (s *Service) LimitMessage(limit int) string {
	return s.prefix + strings.ReplaceAll(s.limitMsg, "{0}", strconv.Itoa(limit))
}

// Action is an operator capability gate for the admin surface.
type Action int

const (
	ActionOpenUI Action = iota
	ActionSetLimit
	ActionCreateTier
)

var ErrNoPermission = errors.New("missing permission")

// CanUse reports whether actor may perform action. Actor 0 is the console
// and may do anything; the admin permission covers every action.
func (s *Service) CanUse(actor uint64, action Action) bool {
	if actor == 0 {
		return true
	}
	if s.perms.HasCapability(actor, PermAdmin) {
		return true
	}
	switch action {
	case ActionOpenUI:
		return s.perms.HasCapability(actor, PermUI)
	case ActionSetLimit:
		return s.perms.HasCapability(actor, PermSetLimit)
	case ActionCreateTier:
		return s.perms.HasCapability(actor, PermCreatePerm)
	default:
		return false
	}
}

// CreateTier creates a tier, optionally cloning an existing one, and
// persists the result.
func (s *Service) CreateTier(actor uint64, name, copyFrom string) (*Tier, error) {
	if !s.CanUse(actor, ActionCreateTier) {
		return nil, ErrNoPermission
	}

	var (
		t   *Tier
		err error
	)
	if copyFrom != "" {
		t, err = s.store.Clone(name, copyFrom)
	} else {
		t, err = s.store.Create(name, s.defaultLimit)
	}
	if err != nil {
		return nil, err
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return t, nil
}

// SetCategoryLimit updates one category limit and persists.
func (s *Service) SetCategoryLimit(actor uint64, tier, category string, limit int) error {
	if !s.CanUse(actor, ActionSetLimit) {
		return ErrNoPermission
	}
	if err := s.store.SetLimit(tier, category, limit); err != nil {
		return err
	}
	return s.persist()
}

// SetCategoryEnabled toggles one category and persists.
func (s *Service) SetCategoryEnabled(actor uint64, tier, category string, enabled bool) error {
	if !s.CanUse(actor, ActionSetLimit) {
		return ErrNoPermission
	}
	if err := s.store.SetEnabled(tier, category, enabled); err != nil {
		return err
	}
	return s.persist()
}

// ListTiers returns tiers ordered by priority.
func (s *Service) ListTiers() []*Tier { return s.store.List() }

// ListCategories pages through a tier's categories.
func (s *Service) ListCategories(tier, search string, offset, limit int) (CategoryPage, error) {
	return s.store.Categories(tier, search, offset, limit)
}

// RefreshCatalog rebuilds the catalog from the registries and merges newly
// discovered categories into every tier. Reports whether anything changed.
func (s *Service) RefreshCatalog() (bool, error) {
	if s.rebuild == nil {
		return false, nil
	}
	cats, err := s.rebuild()
	if err != nil {
		return false, fmt.Errorf("rebuild catalog: %w", err)
	}
	s.store.SetCatalog(cats)
	changed := s.store.Refresh(s.defaultLimit)
	if changed {
		s.log.Printf("catalog refresh added categories to existing tiers")
		if err := s.persist(); err != nil {
			return true, err
		}
	}
	return changed, nil
}

// SeedDefaults populates the three stock tiers when the persisted document
// was empty, then persists immediately.
func (s *Service) SeedDefaults() error {
	if s.store.Len() > 0 {
		return nil
	}
	for _, d := range []struct {
		name  string
		limit int
	}{
		{NamePrefix + "default", 50},
		{NamePrefix + "vip", 500},
		{NamePrefix + "admin", Unbounded},
	} {
		if _, err := s.store.Create(d.name, d.limit); err != nil {
			return err
		}
	}
	return s.persist()
}

// Save persists the tier table (host save signal).
func (s *Service) Save() error { return s.persist() }

func (s *Service) persist() error {
	if s.save == nil {
		return nil
	}
	if err := s.save(s.store.Export()); err != nil {
		s.log.Printf("persist tiers: %v", err)
		return fmt.Errorf("persist tiers: %w", err)
	}
	return nil
}
