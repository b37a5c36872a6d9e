package universe

import (
	"time"

	"astral-server/internal/entity"
	"astral-server/internal/faction"
	"astral-server/internal/mission"
)

// SnapshotVersion is bumped whenever Snapshot changes shape.
const SnapshotVersion = 1

type Player struct {
	Name    string `json:"name"`
	Faction string `json:"faction"`
	Cash    int64  `json:"cash"`
}

// Casualty remembers an entity after its system has removed it, so that
// missions can still learn who killed it.
type Casualty struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Kind     entity.Kind `json:"kind"`
	Faction  string      `json:"faction,omitempty"`
	Hull     string      `json:"hull,omitempty"`
	Pilot    string      `json:"pilot,omitempty"`
	KilledBy string      `json:"killed_by,omitempty"`
	System   string      `json:"system"`
	Tick     uint64      `json:"tick"`
}

func (c Casualty) entity() *entity.Entity {
	return &entity.Entity{
		ID:       c.ID,
		Name:     c.Name,
		Kind:     c.Kind,
		Faction:  c.Faction,
		Hull:     c.Hull,
		Pilot:    c.Pilot,
		State:    entity.StateDead,
		System:   c.System,
		LastBlow: c.KilledBy,
	}
}

type SystemSummary struct {
	Name     string  `json:"name"`
	Owner    string  `json:"owner"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Entities int     `json:"entities"`
	Ships    int     `json:"ships"`
	Stations int     `json:"stations"`
}

type SystemDetail struct {
	SystemSummary
	Members []entity.Entity `json:"members"`
}

type Status struct {
	Tick           uint64 `json:"tick"`
	Systems        int    `json:"systems"`
	Factions       int    `json:"factions"`
	Entities       int    `json:"entities"`
	ActiveMissions int    `json:"active_missions"`
	Casualties     int    `json:"casualties"`
	Player         Player `json:"player"`
}

type SystemState struct {
	Name     string          `json:"name"`
	Owner    string          `json:"owner"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Entities []entity.Entity `json:"entities"`
}

// Snapshot is the persisted form of a universe.
type Snapshot struct {
	Version    int                `json:"version"`
	Tick       uint64             `json:"tick"`
	TakenAt    time.Time          `json:"taken_at"`
	Player     Player             `json:"player"`
	Factions   []*faction.Faction `json:"factions"`
	Systems    []SystemState      `json:"systems"`
	Missions   []*mission.Mission `json:"missions"`
	Casualties []Casualty         `json:"casualties"`
}
