// Package worldstate is the in-process stand-in for the host game engine:
// it tracks live placed objects and team membership, and answers the usage
// counter and team provider contracts the quota engine depends on.
package worldstate

import (
	"log"
	"sync"
	"time"
)

// Counting a category is a full scan of live objects. A scan past this
// budget is logged as a performance warning but still completes.
const slowScanBudget = 100 * time.Millisecond

// Object is one live placed entity.
type Object struct {
	ID       uint64
	Owner    uint64
	Category string
}

// Team is a pooled group of users.
type Team struct {
	ID      uint64
	Members []uint64
}

type World struct {
	mu sync.RWMutex

	log     *log.Logger
	nextID  uint64
	objects map[uint64]Object

	teams      map[uint64]*Team
	memberTeam map[uint64]uint64
}

func New(logger *log.Logger) *World {
	if logger == nil {
		logger = log.Default()
	}
	return &World{
		log:        logger,
		objects:    make(map[uint64]Object),
		teams:      make(map[uint64]*Team),
		memberTeam: make(map[uint64]uint64),
	}
}

// Spawn registers a live object and returns its id.
func (w *World) Spawn(owner uint64, category string) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	w.objects[id] = Object{ID: id, Owner: owner, Category: category}
	return id
}

// Kill removes a live object.
func (w *World) Kill(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.objects, id)
}

// Len reports the live object count.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.objects)
}

// Count scans every live object and counts those whose owner is in the set
// and whose category matches. Counts always reflect current live state;
// nothing is cached between calls because objects come and go outside this
// system's control.
func (w *World) Count(owners map[uint64]struct{}, category string) int {
	start := time.Now()

	w.mu.RLock()
	n := 0
	total := len(w.objects)
	for _, obj := range w.objects {
		if obj.Category != category {
			continue
		}
		if _, ok := owners[obj.Owner]; ok {
			n++
		}
	}
	w.mu.RUnlock()

	if elapsed := time.Since(start); elapsed > slowScanBudget {
		w.log.Printf("[count] slow scan: %dms over %d objects", elapsed.Milliseconds(), total)
	}
	return n
}

// SetTeam registers or replaces a team.
func (w *World) SetTeam(id uint64, members ...uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.teams[id]; ok {
		for _, m := range old.Members {
			delete(w.memberTeam, m)
		}
	}
	t := &Team{ID: id, Members: append([]uint64(nil), members...)}
	w.teams[id] = t
	for _, m := range members {
		w.memberTeam[m] = id
	}
}

// Teammates returns the full member list of the user's team, including the
// user, or nil if the user has no team.
func (w *World) Teammates(user uint64) []uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	tid, ok := w.memberTeam[user]
	if !ok {
		return nil
	}
	t := w.teams[tid]
	if t == nil {
		return nil
	}
	return append([]uint64(nil), t.Members...)
}
