package entity

import (
	"github.com/google/uuid"
)

type Kind string

const (
	KindPlanet   Kind = "planet"
	KindShip     Kind = "ship"
	KindStation  Kind = "station"
	KindJumphole Kind = "jumphole"
)

type State string

const (
	StateAlive State = "ALIVE"
	StateDead  State = "DEAD"
)

type Behavior string

const (
	BehaviorNone   Behavior = "NONE"
	BehaviorPatrol Behavior = "PATROL"
)

// Entity is anything placed in a system. ID is the stable handle other
// records use to refer to it; Name is only unique within a system.
type Entity struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Kind    Kind    `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	VX      float64 `json:"vx,omitempty"`
	VY      float64 `json:"vy,omitempty"`
	Faction string  `json:"faction,omitempty"`
	State   State   `json:"state"`
	System  string  `json:"system"`

	// ships and stations
	Archetype string   `json:"archetype,omitempty"`
	Hull      string   `json:"hull,omitempty"`
	Pilot     string   `json:"pilot,omitempty"`
	Behavior  Behavior `json:"behavior,omitempty"`
	Install   string   `json:"install,omitempty"`
	Cargo     string   `json:"cargo,omitempty"`
	LastBlow  string   `json:"last_blow,omitempty"`

	// celestials
	Texture  string  `json:"texture,omitempty"`
	Diameter float64 `json:"diameter,omitempty"`
	Out      string  `json:"out,omitempty"`
}

func NewID() string {
	return uuid.NewString()
}

func (e *Entity) Alive() bool {
	return e.State == StateAlive
}

// IsCelestial reports whether the entity is a fixed body usable as a
// spawn anchor.
func (e *Entity) IsCelestial() bool {
	return e.Kind == KindPlanet || e.Kind == KindJumphole
}

// Kill marks the entity dead and records the faction that landed the
// final blow. Killing a dead entity changes nothing.
func (e *Entity) Kill(by string) {
	if !e.Alive() {
		return
	}
	e.LastBlow = by
	e.State = StateDead
}

// Updater advances one entity by one tick.
type Updater interface {
	Update(e *Entity, dt float64)
}

type UpdaterFunc func(e *Entity, dt float64)

func (f UpdaterFunc) Update(e *Entity, dt float64) {
	f(e, dt)
}

// Drift integrates velocity. Flight and combat behavior live elsewhere.
var Drift Updater = UpdaterFunc(func(e *Entity, dt float64) {
	e.X += e.VX * dt
	e.Y += e.VY * dt
})
