// Package groups computes the pool of users whose placements count against
// a single quota: the user, their team, and optionally their clan as
// reported by an external clan directory.
package groups

import (
	"strconv"
)

// TeamProvider answers team membership; the host world implements it.
type TeamProvider interface {
	// Teammates returns the user's full team member list, or nil when the
	// user has no team.
	Teammates(user uint64) []uint64
}

// ClanProvider is the two-call clan directory protocol: confirm membership
// first, then fetch the member id list. Member ids arrive as strings and
// are parsed by the aggregator.
type ClanProvider interface {
	IsMember(user uint64) bool
	Members(user uint64) []string
}

// Aggregator unions the pooling rules. Either rule can be switched off; a
// missing or failing provider contributes nothing and never errors.
type Aggregator struct {
	teams TeamProvider
	clans ClanProvider

	useTeams bool
	useClans bool
}

func New(teams TeamProvider, clans ClanProvider, useTeams, useClans bool) *Aggregator {
	return &Aggregator{teams: teams, clans: clans, useTeams: useTeams, useClans: useClans}
}

// Pool returns the set of user ids pooled with user. The user is always in
// the set.
func (a *Aggregator) Pool(user uint64) map[uint64]struct{} {
	pool := map[uint64]struct{}{user: {}}

	if a.useTeams && a.teams != nil {
		for _, m := range a.teams.Teammates(user) {
			pool[m] = struct{}{}
		}
	}

	if a.useClans && a.clans != nil && a.clans.IsMember(user) {
		for _, raw := range a.clans.Members(user) {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				// Malformed ids from the external directory are skipped.
				continue
			}
			pool[id] = struct{}{}
		}
	}

	return pool
}
