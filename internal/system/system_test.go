package system

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"astral-server/internal/catalog"
	"astral-server/internal/entity"
	"astral-server/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSystem(name string) (*System, *entity.Factory) {
	rnd := rand.New(rand.NewSource(7))
	return New(name, "Pirates", 0, 0, rnd, quietLogger()), entity.NewFactory(rnd, quietLogger())
}

func TestAddRemoveIdempotent(t *testing.T) {
	s, f := newTestSystem("Alpha")
	p := f.Planet("Alpha I", "", 0, 0, 0)

	s.Add(p)
	s.Add(p)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "Alpha", p.System)

	assert.True(t, s.Remove(p.ID))
	assert.False(t, s.Remove(p.ID))
	assert.False(t, s.Remove("missing"))
	assert.Equal(t, 0, s.Len())
}

func TestRemoveKeepsOrderAcrossCompaction(t *testing.T) {
	s, f := newTestSystem("Alpha")
	var ids []string
	for i := 0; i < 10; i++ {
		e := f.Station("Outpost", string(rune('A'+i)), "Pirates")
		s.Add(e)
		ids = append(ids, e.ID)
	}
	for i := 0; i < 10; i += 2 {
		s.Remove(ids[i])
	}
	s.Remove(ids[1])

	var names []string
	for _, e := range s.Entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"D", "F", "H", "J"}, names)

	got, ok := s.Get(ids[7])
	require.True(t, ok)
	assert.Equal(t, "H", got.Name)
}

func TestTickVisitsEverySurvivorOnce(t *testing.T) {
	s, f := newTestSystem("Alpha")

	var all []*entity.Entity
	for i := 0; i < 9; i++ {
		e := f.Ship(entity.Loadout{Name: "Raider", Hull: "Cutlass"}, "", "Pirates")
		s.Add(e)
		all = append(all, e)
	}
	// consecutive dead entries are where index-based removal skips a neighbour
	dead := map[int]bool{0: true, 1: true, 4: true, 7: true, 8: true}
	for i := range dead {
		all[i].Kill("Navy")
	}

	calls := map[string]int{}
	s.SetUpdater(entity.UpdaterFunc(func(e *entity.Entity, dt float64) {
		calls[e.ID]++
	}))

	removed := s.Tick(1)

	assert.Len(t, removed, len(dead))
	assert.Equal(t, len(all)-len(dead), s.Len())
	for i, e := range all {
		assert.Equal(t, 1, calls[e.ID], "entity %d updated exactly once", i)
		assert.Equal(t, !dead[i], s.Contains(e.ID))
	}
}

func TestTickRemovesEntitiesKilledDuringPass(t *testing.T) {
	s, f := newTestSystem("Alpha")
	hunter := f.Ship(entity.Loadout{Name: "Hunter"}, "", "Player")
	prey := f.Ship(entity.Loadout{Name: "Raider"}, "", "Pirates")
	bystander := f.Ship(entity.Loadout{Name: "Hauler"}, "", "Traders")
	s.Add(hunter)
	s.Add(prey)
	s.Add(bystander)

	calls := map[string]int{}
	s.SetUpdater(entity.UpdaterFunc(func(e *entity.Entity, dt float64) {
		calls[e.ID]++
		if e == hunter {
			prey.Kill("Player")
			s.Remove(bystander.ID) // jumped out
		}
	}))

	removed := s.Tick(1)

	require.Len(t, removed, 1)
	assert.Equal(t, prey.ID, removed[0].ID)
	assert.Equal(t, 1, calls[prey.ID])
	assert.Equal(t, 0, calls[bystander.ID])
	assert.Equal(t, []*entity.Entity{hunter}, s.Entities())
}

func TestQueries(t *testing.T) {
	s, f := newTestSystem("Alpha")
	s.Add(f.Planet("Alpha I", "", 0, 0, 0))
	s.Add(f.Jumphole("Alpha-Beta", "Beta", 0, 0))
	s.Add(f.Station("Outpost", "Haven", "Pirates"))

	patrol := f.Ship(entity.Loadout{Name: "Raider"}, "", "Pirates")
	patrol.Behavior = entity.BehaviorPatrol
	s.Add(patrol)
	wreck := f.Ship(entity.Loadout{Name: "Raider"}, "", "Pirates")
	wreck.Kill("Navy")
	s.Add(wreck)
	s.Add(f.Ship(entity.Loadout{Name: "Frigate"}, "", "Navy"))

	assert.Len(t, s.Celestials(), 2)
	assert.Len(t, s.Stations(), 1)
	assert.Len(t, s.Ships(), 3)
	assert.Len(t, s.ByFaction("Pirates"), 3)
	assert.Len(t, s.ByArchetype("Raider"), 2)
	assert.Len(t, s.ByBehavior(entity.BehaviorPatrol), 1)
	assert.Equal(t, 1, s.CountShipsByLoadout("Pirates", "Raider"))
	assert.Equal(t, 0, s.CountShipsByLoadout("Navy", "Raider"))
	assert.Equal(t, 1, s.CountShipsByBehavior("Pirates", entity.BehaviorPatrol))
}

func buildCatalog(terms ...catalog.Term) *catalog.Catalog {
	c := catalog.New()
	for _, t := range terms {
		c.Add(t)
	}
	return c
}

func TestBuildPlacement(t *testing.T) {
	cat := buildCatalog(
		catalog.NewTerm(catalog.KindPlanet, catalog.Values{"system": "Alpha", "name": "Alpha I", "x": "5000", "y": "-3000", "d": "1200", "texture": "rock"}),
		catalog.NewTerm(catalog.KindPlanet, catalog.Values{"system": "Beta", "name": "Beta I", "x": "1", "y": "1"}),
		catalog.NewTerm(catalog.KindShip, catalog.Values{"system": "Alpha", "name": "Vigil", "ship": "Cutlass", "near": "Alpha I", "faction": "Pirates"}),
		catalog.NewTerm(catalog.KindStation, catalog.Values{"system": "Alpha", "name": "Haven", "ship": "Outpost", "near": "Alpha I", "faction": "Pirates"}),
		catalog.NewTerm(catalog.KindShip, catalog.Values{"system": "Alpha", "name": "Drifter", "ship": "Hauler", "x": "12", "y": "34", "pilot": "Jo March"}),
		catalog.NewTerm(catalog.KindStation, catalog.Values{"system": "Alpha", "name": "Lost", "ship": "Outpost"}),
		catalog.NewTerm(catalog.KindJumphole, catalog.Values{"system": "Alpha", "name": "Alpha-Beta", "out": "Beta", "x": "0", "y": "0"}),
	)

	for seed := int64(0); seed < 50; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		s := New("Alpha", "Pirates", 0, 0, rnd, quietLogger())
		require.NoError(t, s.Build(cat, entity.NewFactory(rnd, quietLogger())))

		names := []string{}
		for _, e := range s.Entities() {
			names = append(names, e.Name)
		}
		assert.Equal(t, []string{"Alpha I", "Vigil", "Drifter", "Haven", "Lost", "Alpha-Beta"}, names)

		ship, _ := s.FindByName("Vigil")
		assert.GreaterOrEqual(t, ship.X, 5000.0-800)
		assert.Less(t, ship.X, 5000.0+800)
		assert.GreaterOrEqual(t, ship.Y, -3000.0-800)
		assert.Less(t, ship.Y, -3000.0+1100)
		assert.Equal(t, "Cutlass", ship.Hull)
		assert.Equal(t, "Pirates", ship.Faction)

		station, _ := s.FindByName("Haven")
		assert.InDelta(t, 5000, station.X, 800)
		assert.InDelta(t, -3000, station.Y, 800)

		drifter, _ := s.FindByName("Drifter")
		assert.Equal(t, 12.0, drifter.X)
		assert.Equal(t, 34.0, drifter.Y)
		assert.Equal(t, "Jo March", drifter.Pilot)

		lost, _ := s.FindByName("Lost")
		assert.GreaterOrEqual(t, lost.X, 0.0)
		assert.Less(t, lost.X, 1000000.0)
		assert.GreaterOrEqual(t, lost.Y, 0.0)
		assert.Less(t, lost.Y, 1000000.0)
	}
}

func TestBuildBrokenAnchorIsContentError(t *testing.T) {
	cat := buildCatalog(
		catalog.NewTerm(catalog.KindPlanet, catalog.Values{"system": "Alpha", "name": "Alpha I", "x": "5000", "y": "5000"}),
		catalog.NewTerm(catalog.KindShip, catalog.Values{"system": "Alpha", "name": "Stray", "ship": "Cutlass", "near": "Nowhere"}),
		catalog.NewTerm(catalog.KindStation, catalog.Values{"system": "Alpha", "name": "Haven", "ship": "Outpost", "near": "Alpha I"}),
	)
	s, f := newTestSystem("Alpha")

	err := s.Build(cat, f)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeMalformedTemplate))
	assert.Contains(t, err.Error(), `anchor "Nowhere"`)
	assert.ErrorIs(t, err, ErrUnresolvedAnchor)

	// construction carries on; the stray ship stays at the origin
	stray, ok := s.FindByName("Stray")
	require.True(t, ok)
	assert.Equal(t, 0.0, stray.X)
	assert.Equal(t, 0.0, stray.Y)
	_, ok = s.FindByName("Haven")
	assert.True(t, ok)
}

func TestBuildAnchorsOnlyOnCelestials(t *testing.T) {
	cat := buildCatalog(
		catalog.NewTerm(catalog.KindPlanet, catalog.Values{"system": "Alpha", "name": "Alpha I", "x": "5000", "y": "5000"}),
		catalog.NewTerm(catalog.KindStation, catalog.Values{"system": "Alpha", "name": "Haven", "ship": "Outpost", "near": "Alpha I"}),
		catalog.NewTerm(catalog.KindStation, catalog.Values{"system": "Alpha", "name": "Annex", "ship": "Outpost", "near": "Haven"}),
		catalog.NewTerm(catalog.KindShip, catalog.Values{"system": "Alpha", "name": "Escort", "ship": "Cutlass", "near": "Haven"}),
	)
	s, f := newTestSystem("Alpha")

	err := s.Build(cat, f)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedAnchor)
	assert.Contains(t, err.Error(), `Station "Annex"`)
	assert.Contains(t, err.Error(), `Ship "Escort"`)

	haven, ok := s.FindByName("Haven")
	require.True(t, ok)
	assert.InDelta(t, 5000, haven.X, 800)
}

func TestBuildRejectsMalformedRecords(t *testing.T) {
	cat := buildCatalog(
		catalog.NewTerm(catalog.KindPlanet, catalog.Values{"system": "Alpha", "x": "1", "y": "1"}),
		catalog.NewTerm(catalog.KindPlanet, catalog.Values{"system": "Alpha", "name": "Half", "x": "1"}),
		catalog.NewTerm(catalog.KindShip, catalog.Values{"system": "Alpha", "name": "Hull-less"}),
		catalog.NewTerm(catalog.KindJumphole, catalog.Values{"system": "Alpha", "name": "Gate", "out": "Beta", "x": "far", "y": "0"}),
	)
	s, f := newTestSystem("Alpha")

	err := s.Build(cat, f)

	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Contains(t, err.Error(), "missing name")
	assert.Contains(t, err.Error(), "x and y must be given together")
	assert.Contains(t, err.Error(), "missing ship")
	assert.Contains(t, err.Error(), "non-numeric x")
}
