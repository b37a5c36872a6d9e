package system

import (
	stderrors "errors"
	"fmt"

	"astral-server/internal/catalog"
	"astral-server/internal/entity"
	"astral-server/internal/shared/errors"
)

const (
	// fallback placement square for records with neither anchor nor coordinates
	fieldSize = 1000000

	shipJitterX    = 800
	shipJitterYMin = -800
	shipJitterYMax = 1100
	stationJitter  = 800
)

// ErrUnresolvedAnchor marks a record whose "near" anchor is not in the
// system. It arrives wrapped in a malformed-template error.
var ErrUnresolvedAnchor = stderrors.New("anchor not found")

// Build constructs this system's entities from the catalog, in the order
// planets, ships, stations, jumpholes. A bad record is reported and
// skipped; an unresolved anchor is reported and the entity is kept at the
// origin. Construction never stops early, the caller decides whether the
// returned content errors are fatal.
func (s *System) Build(cat *catalog.Catalog, factory *entity.Factory) error {
	logger := s.logger.With("operation", "build")
	logger.Debug("Building system from content")

	var errs []error
	record := func(err error) {
		if err != nil {
			logger.Warn("Content record rejected", "error", err)
			errs = append(errs, err)
		}
	}

	for _, t := range s.recordsOf(cat, catalog.KindPlanet) {
		record(s.buildPlanet(t, factory))
	}
	for _, t := range s.recordsOf(cat, catalog.KindShip) {
		record(s.buildShip(t, factory))
	}
	for _, t := range s.recordsOf(cat, catalog.KindStation) {
		record(s.buildStation(t, factory))
	}
	for _, t := range s.recordsOf(cat, catalog.KindJumphole) {
		record(s.buildJumphole(t, factory))
	}

	logger.Info("System built", "entities", s.Len(), "content_errors", len(errs))
	return stderrors.Join(errs...)
}

func (s *System) recordsOf(cat *catalog.Catalog, kind string) []catalog.Term {
	var out []catalog.Term
	for _, t := range cat.TermsOfType(kind) {
		if t.Value("system") == s.Name {
			out = append(out, t)
		}
	}
	return out
}

func (s *System) buildPlanet(t catalog.Term, factory *entity.Factory) error {
	if err := t.Require("name"); err != nil {
		return err
	}
	x, y, err := s.coordinates(t)
	if err != nil {
		return err
	}
	d, _, err := t.Float("d")
	if err != nil {
		return err
	}
	s.Add(factory.Planet(t.Name(), t.Value("texture"), d, x, y))
	return nil
}

func (s *System) buildJumphole(t catalog.Term, factory *entity.Factory) error {
	if err := t.Require("name", "out"); err != nil {
		return err
	}
	x, y, err := s.coordinates(t)
	if err != nil {
		return err
	}
	s.Add(factory.Jumphole(t.Name(), t.Value("out"), x, y))
	return nil
}

func (s *System) buildShip(t catalog.Term, factory *entity.Factory) error {
	if err := t.Require("name", "ship"); err != nil {
		return err
	}
	ship := factory.Ship(entity.Loadout{
		Name:    t.Value("ship"),
		Hull:    t.Value("ship"),
		Install: t.Value("install"),
		Cargo:   t.Value("cargo"),
	}, t.Name(), t.Value("faction"))
	if pilot := t.Value("pilot"); pilot != "" {
		ship.Pilot = pilot
	}
	if behavior := t.Value("behavior"); behavior != "" {
		ship.Behavior = entity.Behavior(behavior)
	}
	if archetype := t.Value("archetype"); archetype != "" {
		ship.Archetype = archetype
	}

	err := s.place(ship, t, shipJitterX, shipJitterYMin, shipJitterYMax)
	s.Add(ship)
	return err
}

func (s *System) buildStation(t catalog.Term, factory *entity.Factory) error {
	if err := t.Require("name", "ship"); err != nil {
		return err
	}
	station := factory.Station(t.Value("ship"), t.Name(), t.Value("faction"))

	err := s.place(station, t, stationJitter, -stationJitter, stationJitter)
	s.Add(station)
	return err
}

// place positions e near a named celestial, at explicit coordinates, or at
// random in the field, in that order of preference.
func (s *System) place(e *entity.Entity, t catalog.Term, jx, jyMin, jyMax int) error {
	if near := t.Value("near"); near != "" {
		anchor, ok := s.celestial(near)
		if !ok {
			return errors.WrapMalformedTemplate(fmt.Sprintf("%s %q in system %s: anchor %q", t.Kind, t.Name(), s.Name, near), ErrUnresolvedAnchor)
		}
		e.X = anchor.X + float64(s.rnd.Intn(2*jx)-jx)
		e.Y = anchor.Y + float64(s.rnd.Intn(jyMax-jyMin)+jyMin)
		return nil
	}

	x, y, err := s.coordinates(t)
	if err != nil {
		return err
	}
	e.X, e.Y = x, y
	return nil
}

// celestial finds an anchor by name. Ships and stations never anchor
// others, so the result does not depend on record order.
func (s *System) celestial(name string) (*entity.Entity, bool) {
	for _, c := range s.Celestials() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// coordinates returns explicit x/y when both are present, otherwise a
// uniform random point in the field.
func (s *System) coordinates(t catalog.Term) (float64, float64, error) {
	x, hasX, err := t.Float("x")
	if err != nil {
		return 0, 0, err
	}
	y, hasY, err := t.Float("y")
	if err != nil {
		return 0, 0, err
	}
	if hasX && hasY {
		return x, y, nil
	}
	if hasX != hasY {
		return 0, 0, errors.MalformedTemplatef("%s %q in system %s: x and y must be given together", t.Kind, t.Name(), s.Name)
	}
	return float64(s.rnd.Intn(fieldSize)), float64(s.rnd.Intn(fieldSize)), nil
}

// Tick updates every member once, then removes the dead. Members are
// visited from a snapshot so removals during the pass cannot skip anyone;
// an entity taken out of the system mid-pass is not updated. Returns the
// removed entities.
func (s *System) Tick(dt float64) []*entity.Entity {
	for _, e := range s.Entities() {
		if !s.Contains(e.ID) {
			continue
		}
		s.updater.Update(e, dt)
	}

	var removed []*entity.Entity
	for _, e := range s.Entities() {
		if !e.Alive() {
			s.Remove(e.ID)
			removed = append(removed, e)
		}
	}

	if len(removed) > 0 {
		s.logger.Debug("Removed dead entities", "operation", "tick", "count", len(removed))
	}
	return removed
}

func (s *System) String() string {
	return fmt.Sprintf("%s (%s, %d entities)", s.Name, s.Owner, s.Len())
}
