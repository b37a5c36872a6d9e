package universe

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"astral-server/internal/catalog"
	"astral-server/internal/entity"
	"astral-server/internal/faction"
	"astral-server/internal/mission"
	"astral-server/internal/shared/errors"
	"astral-server/internal/shared/metrics"
	"astral-server/internal/system"
)

type Options struct {
	// StrictAnchors makes an unresolved "near" anchor fatal. Otherwise the
	// entity is kept at the origin and the error is only logged.
	StrictAnchors bool
	PlayerName    string
	PlayerCash    int64
	Rand          *rand.Rand
	Updater       entity.Updater
}

// Universe is the whole simulated world. It is not safe for concurrent
// use; the game engine serializes access.
type Universe struct {
	systems     []*system.System
	systemIndex map[string]*system.System

	factions     []*faction.Faction
	factionIndex map[string]*faction.Faction

	player     Player
	board      *mission.Board
	casualties map[string]Casualty
	tick       uint64

	rnd     *rand.Rand
	updater entity.Updater
	logger  *slog.Logger
}

func newUniverse(opts Options, logger *slog.Logger) *Universe {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &Universe{
		systemIndex:  make(map[string]*system.System),
		factionIndex: make(map[string]*faction.Faction),
		player:       Player{Name: opts.PlayerName, Faction: faction.Player, Cash: opts.PlayerCash},
		board:        mission.NewBoard(),
		casualties:   make(map[string]Casualty),
		rnd:          rnd,
		updater:      opts.Updater,
		logger:       logger.With("component", "universe"),
	}
}

// Build constructs the universe from content: factions first, then every
// system with its entities. Any content error fails the build, except
// unresolved anchors when StrictAnchors is off.
func Build(cat *catalog.Catalog, factory *entity.Factory, opts Options, logger *slog.Logger) (*Universe, error) {
	u := newUniverse(opts, logger)
	logger = u.logger.With("operation", "build")
	logger.Info("Building universe", "records", cat.Len(), "strict_anchors", opts.StrictAnchors)

	var errs []error

	for _, t := range cat.TermsOfType(catalog.KindFaction) {
		f, err := faction.FromTerm(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := u.factionIndex[f.Name]; dup {
			errs = append(errs, errors.MalformedTemplatef("faction %q defined twice", f.Name))
			continue
		}
		u.addFaction(f)
	}
	if _, ok := u.factionIndex[faction.Player]; !ok {
		u.addFaction(faction.New(faction.Player))
	}

	for _, t := range cat.TermsOfType(catalog.KindSystem) {
		s, err := u.newSystem(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		u.addSystem(s)
	}

	errs = append(errs, u.checkReferences(cat)...)

	for _, s := range u.systems {
		for _, err := range flatten(s.Build(cat, factory)) {
			if !opts.StrictAnchors && stderrors.Is(err, system.ErrUnresolvedAnchor) {
				logger.Warn("Anchor not found, entity left at origin", "system", s.Name, "error", err)
				continue
			}
			errs = append(errs, err)
		}
	}

	if err := stderrors.Join(errs...); err != nil {
		logger.Error("Universe content is invalid", "errors", len(errs))
		return nil, fmt.Errorf("failed to build universe: %w", err)
	}

	logger.Info("Universe built", "systems", len(u.systems), "factions", len(u.factions), "entities", u.entityCount())
	return u, nil
}

func (u *Universe) newSystem(t catalog.Term) (*system.System, error) {
	if err := t.Require("name"); err != nil {
		return nil, err
	}
	if _, dup := u.systemIndex[t.Name()]; dup {
		return nil, errors.MalformedTemplatef("system %q defined twice", t.Name())
	}
	x, _, err := t.Float("x")
	if err != nil {
		return nil, err
	}
	y, _, err := t.Float("y")
	if err != nil {
		return nil, err
	}
	return system.New(t.Name(), t.Value("owner"), x, y, u.rnd, u.logger), nil
}

// checkReferences reports entity records placed in unknown systems and
// jumpholes leading nowhere.
func (u *Universe) checkReferences(cat *catalog.Catalog) []error {
	var errs []error
	for _, kind := range []string{catalog.KindPlanet, catalog.KindShip, catalog.KindStation, catalog.KindJumphole} {
		for _, t := range cat.TermsOfType(kind) {
			name := t.Value("system")
			if name == "" {
				errs = append(errs, errors.MalformedTemplatef("%s %q: missing system", kind, t.Name()))
				continue
			}
			if _, ok := u.systemIndex[name]; !ok {
				errs = append(errs, errors.MalformedTemplatef("%s %q: unknown system %q", kind, t.Name(), name))
			}
			if kind == catalog.KindJumphole {
				if _, ok := u.systemIndex[t.Value("out")]; !ok && t.Has("out") {
					errs = append(errs, errors.MalformedTemplatef("jumphole %q: unknown destination %q", t.Name(), t.Value("out")))
				}
			}
		}
	}
	return errs
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func (u *Universe) addFaction(f *faction.Faction) {
	u.factions = append(u.factions, f)
	u.factionIndex[f.Name] = f
}

func (u *Universe) addSystem(s *system.System) {
	if u.updater != nil {
		s.SetUpdater(u.updater)
	}
	u.systems = append(u.systems, s)
	u.systemIndex[s.Name] = s
}

// Factions returns factions in declaration order.
func (u *Universe) Factions() []*faction.Faction {
	return append([]*faction.Faction(nil), u.factions...)
}

func (u *Universe) Faction(name string) (*faction.Faction, bool) {
	f, ok := u.factionIndex[name]
	return f, ok
}

func (u *Universe) Systems() []*system.System {
	return append([]*system.System(nil), u.systems...)
}

func (u *Universe) System(name string) (*system.System, bool) {
	s, ok := u.systemIndex[name]
	return s, ok
}

// SovereignSystems returns the systems owned by the named faction.
func (u *Universe) SovereignSystems(name string) []*system.System {
	var out []*system.System
	for _, s := range u.systems {
		if s.Owner == name {
			out = append(out, s)
		}
	}
	return out
}

func (u *Universe) Board() *mission.Board {
	return u.board
}

func (u *Universe) Player() Player {
	return u.player
}

func (u *Universe) PlayerName() string {
	return u.player.Name
}

func (u *Universe) Credit(amount int64) {
	u.player.Cash += amount
	u.logger.Info("Player credited", "operation", "credit", "amount", amount, "cash", u.player.Cash)
}

func (u *Universe) Tick() uint64 {
	return u.tick
}

// Locate finds a live member by ID.
func (u *Universe) Locate(id string) (*entity.Entity, *system.System, bool) {
	for _, s := range u.systems {
		if e, ok := s.Get(id); ok {
			return e, s, true
		}
	}
	return nil, nil, false
}

// Resolve returns the member with the given ID, or a dead stand-in built
// from the casualty log once its system has removed it.
func (u *Universe) Resolve(id string) (*entity.Entity, bool) {
	if e, _, ok := u.Locate(id); ok {
		return e, true
	}
	if c, ok := u.casualties[id]; ok {
		return c.entity(), true
	}
	return nil, false
}

// Kill lands a blow on the entity from the named faction.
func (u *Universe) Kill(id, by string) (*entity.Entity, error) {
	e, _, ok := u.Locate(id)
	if !ok {
		return nil, errors.NotFoundf("entity %q not found", id)
	}
	if !e.Alive() {
		return nil, errors.Conflictf("entity %q is already dead", id)
	}
	e.Kill(by)
	u.logger.Info("Entity killed", "operation", "kill", "id", id, "name", e.Name, "by", by)
	return e, nil
}

// TickSystems advances the clock and every system once, logging removed
// entities into the casualty log. A system that panics is skipped.
func (u *Universe) TickSystems(dt float64) error {
	u.tick++

	var errs []error
	for _, s := range u.systems {
		removed, err := u.tickSystem(s, dt)
		if err != nil {
			u.logger.Error("System tick failed", "operation", "tick", "system", s.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		for _, e := range removed {
			u.casualties[e.ID] = Casualty{
				ID:       e.ID,
				Name:     e.Name,
				Kind:     e.Kind,
				Faction:  e.Faction,
				Hull:     e.Hull,
				Pilot:    e.Pilot,
				KilledBy: e.LastBlow,
				System:   s.Name,
				Tick:     u.tick,
			}
			metrics.RecordEntityRemoved(string(e.Kind))
		}
		metrics.SetSystemEntities(s.Name, s.Len())
	}
	return stderrors.Join(errs...)
}

func (u *Universe) tickSystem(s *system.System, dt float64) (removed []*entity.Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in system %s: %v", s.Name, r)
		}
	}()
	return s.Tick(dt), nil
}

// PruneCasualties forgets casualties older than retention ticks unless an
// active mission still targets them. Zero retention keeps everything.
func (u *Universe) PruneCasualties(retention uint64) int {
	if retention == 0 || u.tick <= retention {
		return 0
	}
	cutoff := u.tick - retention
	targets := u.board.Targets()

	pruned := 0
	for id, c := range u.casualties {
		if _, wanted := targets[id]; wanted || c.Tick > cutoff {
			continue
		}
		delete(u.casualties, id)
		pruned++
	}
	if pruned > 0 {
		u.logger.Debug("Casualties pruned", "operation", "prune", "count", pruned, "remaining", len(u.casualties))
	}
	return pruned
}

func (u *Universe) Casualties() []Casualty {
	out := make([]Casualty, 0, len(u.casualties))
	for _, c := range u.casualties {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tick != out[j].Tick {
			return out[i].Tick < out[j].Tick
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (u *Universe) entityCount() int {
	n := 0
	for _, s := range u.systems {
		n += s.Len()
	}
	return n
}

func (u *Universe) Status() Status {
	return Status{
		Tick:           u.tick,
		Systems:        len(u.systems),
		Factions:       len(u.factions),
		Entities:       u.entityCount(),
		ActiveMissions: u.board.Len(),
		Casualties:     len(u.casualties),
		Player:         u.player,
	}
}

func summarize(s *system.System) SystemSummary {
	return SystemSummary{
		Name:     s.Name,
		Owner:    s.Owner,
		X:        s.X,
		Y:        s.Y,
		Entities: s.Len(),
		Ships:    s.Count(system.Filter{Kind: entity.KindShip}),
		Stations: s.Count(system.Filter{Kind: entity.KindStation}),
	}
}

func (u *Universe) SystemSummaries() []SystemSummary {
	out := make([]SystemSummary, 0, len(u.systems))
	for _, s := range u.systems {
		out = append(out, summarize(s))
	}
	return out
}

// SystemDetail returns copies of the members matching filter.
func (u *Universe) SystemDetail(name string, filter system.Filter) (SystemDetail, error) {
	s, ok := u.systemIndex[name]
	if !ok {
		return SystemDetail{}, errors.NotFoundf("system %q not found", name)
	}
	members := s.Query(filter)
	detail := SystemDetail{SystemSummary: summarize(s), Members: make([]entity.Entity, 0, len(members))}
	for _, e := range members {
		detail.Members = append(detail.Members, *e)
	}
	return detail, nil
}

// Snapshot captures the universe as plain data sharing nothing with it.
func (u *Universe) Snapshot() Snapshot {
	snap := Snapshot{
		Version:    SnapshotVersion,
		Tick:       u.tick,
		Player:     u.player,
		Casualties: u.Casualties(),
	}
	for _, f := range u.factions {
		snap.Factions = append(snap.Factions, f.Clone())
	}
	for _, s := range u.systems {
		state := SystemState{Name: s.Name, Owner: s.Owner, X: s.X, Y: s.Y}
		for _, e := range s.Entities() {
			state.Entities = append(state.Entities, *e)
		}
		snap.Systems = append(snap.Systems, state)
	}
	for _, m := range u.board.Missions() {
		c := *m
		c.Targets = append([]string(nil), m.Targets...)
		snap.Missions = append(snap.Missions, &c)
	}
	return snap
}

// Restore rebuilds a universe from a snapshot.
func Restore(snap Snapshot, opts Options, logger *slog.Logger) (*Universe, error) {
	if snap.Version != SnapshotVersion {
		return nil, errors.Validationf("snapshot version %d is not supported", snap.Version)
	}

	u := newUniverse(opts, logger)
	u.tick = snap.Tick
	u.player = snap.Player

	for _, f := range snap.Factions {
		u.addFaction(f.Clone())
	}
	if _, ok := u.factionIndex[faction.Player]; !ok {
		u.addFaction(faction.New(faction.Player))
	}
	for _, st := range snap.Systems {
		s := system.New(st.Name, st.Owner, st.X, st.Y, u.rnd, u.logger)
		for i := range st.Entities {
			e := st.Entities[i]
			s.Add(&e)
		}
		u.addSystem(s)
	}
	for _, m := range snap.Missions {
		c := *m
		u.board.Add(&c)
	}
	for _, c := range snap.Casualties {
		u.casualties[c.ID] = c
	}

	u.logger.Info("Universe restored",
		"operation", "restore", "tick", u.tick, "systems", len(u.systems), "missions", u.board.Len())
	return u, nil
}
