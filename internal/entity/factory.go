package entity

import (
	"fmt"
	"log/slog"
	"math/rand"
)

// FallbackHull is used when an archetype has no loadout record.
const FallbackHull = "Mass Testing Brick"

// Loadout describes the hull, installed equipment and starting cargo of
// a ship archetype.
type Loadout struct {
	Name    string `json:"name"`
	Hull    string `json:"hull"`
	Install string `json:"install"`
	Cargo   string `json:"cargo"`
}

type Factory struct {
	rnd    *rand.Rand
	logger *slog.Logger
}

func NewFactory(rnd *rand.Rand, logger *slog.Logger) *Factory {
	logger.Debug("Initializing entity factory")

	return &Factory{
		rnd:    rnd,
		logger: logger,
	}
}

// Ship builds a live ship from a loadout. Position, behavior and system
// are left for the caller.
func (f *Factory) Ship(l Loadout, name, faction string) *Entity {
	hull := l.Hull
	if hull == "" {
		f.logger.Warn("Loadout has no hull, using fallback",
			"component", "entity_factory", "loadout", l.Name, "hull", FallbackHull)
		hull = FallbackHull
	}
	if name == "" {
		name = l.Name
	}

	return &Entity{
		ID:        NewID(),
		Name:      name,
		Kind:      KindShip,
		Faction:   faction,
		State:     StateAlive,
		Archetype: l.Name,
		Hull:      hull,
		Pilot:     f.PilotName(),
		Behavior:  BehaviorNone,
		Install:   l.Install,
		Cargo:     l.Cargo,
	}
}

func (f *Factory) Station(hull, name, faction string) *Entity {
	return &Entity{
		ID:        NewID(),
		Name:      name,
		Kind:      KindStation,
		Faction:   faction,
		State:     StateAlive,
		Archetype: hull,
		Hull:      hull,
		Behavior:  BehaviorNone,
	}
}

func (f *Factory) Planet(name, texture string, diameter, x, y float64) *Entity {
	return &Entity{
		ID:       NewID(),
		Name:     name,
		Kind:     KindPlanet,
		State:    StateAlive,
		X:        x,
		Y:        y,
		Texture:  texture,
		Diameter: diameter,
	}
}

func (f *Factory) Jumphole(name, out string, x, y float64) *Entity {
	return &Entity{
		ID:    NewID(),
		Name:  name,
		Kind:  KindJumphole,
		State: StateAlive,
		X:     x,
		Y:     y,
		Out:   out,
	}
}

// PilotName draws a pilot name from the name tables.
func (f *Factory) PilotName() string {
	first := firstNames[f.rnd.Intn(len(firstNames))]
	last := lastNames[f.rnd.Intn(len(lastNames))]
	return fmt.Sprintf("%s %s", first, last)
}

var firstNames = []string{
	"Ada", "Bram", "Cyra", "Dov", "Elin", "Fenn", "Galen", "Hesper", "Ilse",
	"Joss", "Kira", "Lev", "Mara", "Nils", "Orin", "Pell", "Quill", "Rhea",
	"Soren", "Talia", "Uri", "Vesna", "Wren", "Xan", "Yara", "Zed",
}

var lastNames = []string{
	"Achterberg", "Bellamy", "Castellan", "Drake", "Eskildsen", "Farrow",
	"Grieve", "Halloran", "Ivers", "Jansen", "Kovac", "Lindqvist", "Marlowe",
	"Nakamura", "Okafor", "Petrov", "Quist", "Rask", "Solberg", "Tanaka",
	"Ulric", "Varga", "Whitlock", "Yilmaz", "Zeller",
}
