// Package limits holds the quota engine: the tier table, privilege
// resolution and the placement decision point.
package limits

import "math"

// NamePrefix is the required prefix for tier names. A tier name doubles as
// the permission string that grants the tier.
const NamePrefix = "advancedentitylimit."

// Action permissions for the operator surface.
const (
	PermUI         = "advancedentitylimit.ui"
	PermSetLimit   = "advancedentitylimit.setlimit"
	PermCreatePerm = "advancedentitylimit.createpermission"
	PermAdmin      = "advancedentitylimit.admin"
)

// Unbounded is the limit used for tiers that should never block placement.
const Unbounded = math.MaxInt32

// LimitEntry is the per-category setting inside a tier. Limited=false means
// the category is exempt from any quota, regardless of the stored limit.
type LimitEntry struct {
	Icon    string `json:"icon"`
	Limit   int    `json:"limit"`
	Limited bool   `json:"enabled"`
}

// Tier is a named privilege level. Priority increases with creation order
// and breaks ties when a user holds several tiers: highest priority wins.
type Tier struct {
	Name       string
	Priority   int
	Categories map[string]*LimitEntry

	// seq is the creation sequence, used only as the final tie-break.
	seq int
}

// LimitFor returns the quota for a category. ok=false means no quota
// applies: the category is unknown to this tier or explicitly exempt.
func (t *Tier) LimitFor(category string) (limit int, ok bool) {
	e, found := t.Categories[category]
	if !found || !e.Limited {
		return 0, false
	}
	return e.Limit, true
}

// Seq reports the tier's creation sequence number.
func (t *Tier) Seq() int { return t.seq }

func (t *Tier) clone(name string) *Tier {
	cats := make(map[string]*LimitEntry, len(t.Categories))
	for k, e := range t.Categories {
		cp := *e
		cats[k] = &cp
	}
	return &Tier{
		Name:       name,
		Priority:   t.Priority + 1,
		Categories: cats,
	}
}
