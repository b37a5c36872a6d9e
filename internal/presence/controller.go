// Package presence keeps faction patrols at their configured density.
package presence

import (
	"fmt"
	"log/slog"
	"math/rand"

	"astral-server/internal/catalog"
	"astral-server/internal/entity"
	"astral-server/internal/faction"
	"astral-server/internal/shared/errors"
	"astral-server/internal/shared/metrics"
	"astral-server/internal/system"
)

// SpawnRadius bounds the jitter around the anchor celestial on each axis.
const SpawnRadius = 4000

// World is what the controller reads and writes.
type World interface {
	Factions() []*faction.Faction
	SovereignSystems(faction string) []*system.System
	System(name string) (*system.System, bool)
}

// SpawnRequest describes one unit to materialize.
type SpawnRequest struct {
	Archetype string
	Faction   string
	System    string
	X         float64
	Y         float64
	Behavior  entity.Behavior
}

type Controller struct {
	catalog *catalog.Catalog
	factory *entity.Factory
	rnd     *rand.Rand
	logger  *slog.Logger
}

func NewController(cat *catalog.Catalog, factory *entity.Factory, rnd *rand.Rand, logger *slog.Logger) *Controller {
	logger.Debug("Initializing presence controller")

	return &Controller{
		catalog: cat,
		factory: factory,
		rnd:     rnd,
		logger:  logger.With("component", "presence"),
	}
}

// Tick measures every faction first and spawns afterwards, so no count
// taken this tick sees a unit spawned this tick. Returns the spawned ships.
func (c *Controller) Tick(world World) []*entity.Entity {
	var spawned []*entity.Entity
	for _, req := range c.Plan(world) {
		ship, err := c.Materialize(world, req)
		if err != nil {
			c.logger.Error("Failed to materialize patrol",
				"operation", "materialize", "faction", req.Faction, "archetype", req.Archetype, "error", err)
			metrics.RecordStageFailure("presence")
			continue
		}
		spawned = append(spawned, ship)
	}
	return spawned
}

// Plan is the read pass: one request per under-target patrol. A failing
// faction is logged and skipped.
func (c *Controller) Plan(world World) []SpawnRequest {
	var requests []SpawnRequest
	for _, f := range world.Factions() {
		reqs, err := c.planFaction(world, f)
		if err != nil {
			c.logger.Error("Error manipulating dynamic universe",
				"operation", "plan", "faction", f.Name, "error", err)
			metrics.RecordStageFailure("presence")
			continue
		}
		requests = append(requests, reqs...)
	}
	return requests
}

func (c *Controller) planFaction(world World, f *faction.Faction) (requests []SpawnRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while planning patrols: %v", r)
			requests = nil
		}
	}()

	patrols := f.Patrols()
	if len(patrols) == 0 {
		return nil, nil
	}

	logger := c.logger.With("operation", "plan", "faction", f.Name)
	sovereign := world.SovereignSystems(f.Name)

	for _, p := range patrols {
		count := 0
		for _, s := range sovereign {
			count += s.CountShipsByLoadout(f.Name, p.Archetype)
		}
		if count >= p.Density {
			continue
		}

		req, err := c.placement(sovereign, f.Name, p.Archetype)
		if err != nil {
			logger.Warn("Patrol spawn skipped",
				"archetype", p.Archetype, "count", count, "target", p.Density, "error", err)
			continue
		}
		logger.Debug("Patrol under target",
			"archetype", p.Archetype, "count", count, "target", p.Density, "system", req.System)
		requests = append(requests, req)
	}
	return requests, nil
}

// placement picks a sovereign system, an anchor celestial in it, and a
// jittered position around the anchor.
func (c *Controller) placement(sovereign []*system.System, factionName, archetype string) (SpawnRequest, error) {
	if len(sovereign) == 0 {
		metrics.RecordResolutionFailure(factionName, "no_sovereign_systems")
		return SpawnRequest{}, errors.Resolutionf("faction %q holds no sovereign systems", factionName)
	}
	target := sovereign[c.rnd.Intn(len(sovereign))]

	celestials := target.Celestials()
	if len(celestials) == 0 {
		metrics.RecordResolutionFailure(factionName, "no_celestials")
		return SpawnRequest{}, errors.Resolutionf("system %q has no celestial to anchor a spawn", target.Name)
	}
	anchor := celestials[c.rnd.Intn(len(celestials))]

	return SpawnRequest{
		Archetype: archetype,
		Faction:   factionName,
		System:    target.Name,
		X:         anchor.X + float64(c.rnd.Intn(2*SpawnRadius)-SpawnRadius),
		Y:         anchor.Y + float64(c.rnd.Intn(2*SpawnRadius)-SpawnRadius),
		Behavior:  entity.BehaviorPatrol,
	}, nil
}

// Materialize builds the ship described by req and registers it in its
// system. An archetype without a loadout record flies the fallback hull.
func (c *Controller) Materialize(world World, req SpawnRequest) (*entity.Entity, error) {
	target, ok := world.System(req.System)
	if !ok {
		return nil, errors.NotFoundf("system %q not found", req.System)
	}

	loadout := entity.Loadout{Name: req.Archetype}
	if t, ok := c.catalog.Find(catalog.KindLoadout, req.Archetype); ok {
		loadout.Hull = t.Value("ship")
		loadout.Install = t.Value("install")
		loadout.Cargo = t.Value("cargo")
	} else {
		loadout.Hull = entity.FallbackHull
		c.logger.Warn("No loadout for archetype, using fallback hull",
			"operation", "materialize", "archetype", req.Archetype, "hull", entity.FallbackHull)
	}

	ship := c.factory.Ship(loadout, req.Archetype, req.Faction)
	ship.X, ship.Y = req.X, req.Y
	ship.Behavior = req.Behavior
	target.Add(ship)

	metrics.RecordPatrolSpawn(req.Faction, req.Archetype)
	c.logger.Info("Patrol spawned",
		"operation", "materialize",
		"faction", req.Faction,
		"archetype", req.Archetype,
		"system", req.System,
		"id", ship.ID,
	)
	return ship, nil
}
