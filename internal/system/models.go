package system

import (
	"log/slog"
	"math/rand"

	"astral-server/internal/entity"
)

// System is one solar system: an ordered entity registry plus the faction
// holding sovereignty and the system's position on the star map. It is the
// only writer of its own membership.
type System struct {
	Name  string
	Owner string
	X     float64
	Y     float64

	members []*entity.Entity
	index   map[string]int
	holes   int

	updater entity.Updater
	rnd     *rand.Rand
	logger  *slog.Logger
}

func New(name, owner string, x, y float64, rnd *rand.Rand, logger *slog.Logger) *System {
	return &System{
		Name:    name,
		Owner:   owner,
		X:       x,
		Y:       y,
		index:   make(map[string]int),
		updater: entity.Drift,
		rnd:     rnd,
		logger:  logger.With("component", "system", "system", name),
	}
}

func (s *System) SetUpdater(u entity.Updater) {
	if u == nil {
		u = entity.Drift
	}
	s.updater = u
}

// Add places e in this system. Adding a member twice is a no-op.
func (s *System) Add(e *entity.Entity) {
	if _, ok := s.index[e.ID]; ok {
		return
	}
	e.System = s.Name
	s.index[e.ID] = len(s.members)
	s.members = append(s.members, e)
}

// Remove drops the entity with the given id and reports whether it was a
// member. Removing an absent entity is a no-op.
func (s *System) Remove(id string) bool {
	pos, ok := s.index[id]
	if !ok {
		return false
	}
	s.members[pos] = nil
	delete(s.index, id)
	s.holes++
	if s.holes*2 > len(s.members) {
		s.compact()
	}
	return true
}

// compact closes the gaps left by removals, keeping member order.
func (s *System) compact() {
	live := s.members[:0]
	for _, e := range s.members {
		if e != nil {
			s.index[e.ID] = len(live)
			live = append(live, e)
		}
	}
	for i := len(live); i < len(s.members); i++ {
		s.members[i] = nil
	}
	s.members = live
	s.holes = 0
}

func (s *System) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *System) Get(id string) (*entity.Entity, bool) {
	pos, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.members[pos], true
}

// FindByName returns the first member with the given name.
func (s *System) FindByName(name string) (*entity.Entity, bool) {
	for _, e := range s.members {
		if e != nil && e.Name == name {
			return e, true
		}
	}
	return nil, false
}

func (s *System) Len() int {
	return len(s.index)
}

// Entities returns the members in order. The slice is a copy.
func (s *System) Entities() []*entity.Entity {
	out := make([]*entity.Entity, 0, len(s.index))
	for _, e := range s.members {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Filter narrows a query. Zero-valued fields match everything.
type Filter struct {
	Kind      entity.Kind
	Faction   string
	Archetype string
	Behavior  entity.Behavior
	AliveOnly bool
}

func (f Filter) matches(e *entity.Entity) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Faction != "" && e.Faction != f.Faction {
		return false
	}
	if f.Archetype != "" && e.Archetype != f.Archetype {
		return false
	}
	if f.Behavior != "" && e.Behavior != f.Behavior {
		return false
	}
	if f.AliveOnly && !e.Alive() {
		return false
	}
	return true
}

func (s *System) Query(f Filter) []*entity.Entity {
	var out []*entity.Entity
	for _, e := range s.members {
		if e != nil && f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *System) Count(f Filter) int {
	n := 0
	for _, e := range s.members {
		if e != nil && f.matches(e) {
			n++
		}
	}
	return n
}

func (s *System) Ships() []*entity.Entity {
	return s.Query(Filter{Kind: entity.KindShip})
}

func (s *System) Stations() []*entity.Entity {
	return s.Query(Filter{Kind: entity.KindStation})
}

func (s *System) ByFaction(faction string) []*entity.Entity {
	return s.Query(Filter{Faction: faction})
}

func (s *System) ByArchetype(archetype string) []*entity.Entity {
	return s.Query(Filter{Archetype: archetype})
}

func (s *System) ByBehavior(behavior entity.Behavior) []*entity.Entity {
	return s.Query(Filter{Behavior: behavior})
}

func (s *System) Celestials() []*entity.Entity {
	var out []*entity.Entity
	for _, e := range s.members {
		if e != nil && e.IsCelestial() {
			out = append(out, e)
		}
	}
	return out
}

// CountShipsByLoadout counts live ships of a faction built from an archetype.
func (s *System) CountShipsByLoadout(faction, archetype string) int {
	return s.Count(Filter{Kind: entity.KindShip, Faction: faction, Archetype: archetype, AliveOnly: true})
}

// CountShipsByBehavior counts live ships of a faction flying a behavior.
func (s *System) CountShipsByBehavior(faction string, behavior entity.Behavior) int {
	return s.Count(Filter{Kind: entity.KindShip, Faction: faction, Behavior: behavior, AliveOnly: true})
}
