package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"astral-server/internal/catalog"
	"astral-server/internal/comms"
	"astral-server/internal/entity"
	"astral-server/internal/mission"
	"astral-server/internal/presence"
	"astral-server/internal/shared/errors"
	"astral-server/internal/shared/metrics"
	"astral-server/internal/snapshot"
	"astral-server/internal/universe"
)

// Engine owns the universe and drives it one tick at a time. All access
// goes through the engine's lock.
type Engine struct {
	mu       sync.RWMutex
	universe *universe.Universe
	presence *presence.Controller
	missions *mission.Service

	inbox  *comms.Inbox
	store  snapshot.Store
	opts   Options
	logger *slog.Logger
}

// New builds the universe from content. Malformed mission templates or
// entity records fail construction.
func New(cat *catalog.Catalog, store snapshot.Store, opts Options, logger *slog.Logger) (*Engine, error) {
	logger = logger.With("component", "engine")
	logger.Debug("Initializing game engine", "seed", opts.Seed)

	templates, err := mission.LoadTemplates(cat)
	if err != nil {
		return nil, fmt.Errorf("failed to load mission templates: %w", err)
	}

	rnd := rand.New(rand.NewSource(opts.Seed))
	opts.Universe.Rand = rnd
	factory := entity.NewFactory(rnd, logger)

	u, err := universe.Build(cat, factory, opts.Universe, logger)
	if err != nil {
		return nil, err
	}

	inbox := comms.NewInbox(opts.InboxCapacity)
	sink := append(comms.Fanout{inbox}, opts.Sinks...)

	if store == nil {
		store = snapshot.NewMemoryStore()
	}
	if opts.TickDelta <= 0 {
		opts.TickDelta = 1
	}

	e := &Engine{
		universe: u,
		presence: presence.NewController(cat, factory, rnd, logger),
		missions: mission.NewService(templates, sink, rnd, logger),
		inbox:    inbox,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
	logger.Info("Game engine ready", "templates", len(templates), "status", u.Status())
	return e, nil
}

// SetFailWhen installs the mission failure predicate.
func (e *Engine) SetFailWhen(fn func(m *mission.Mission, world mission.World) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.missions.FailWhen = fn
}

// Step runs one tick: presence, then systems, then missions. A failing
// stage is logged and the remaining stages still run.
func (e *Engine) Step(ctx context.Context) StepReport {
	start := time.Now()
	e.mu.Lock()

	var report StepReport
	stage := func(name string, fn func() error) {
		if err := runStage(fn); err != nil {
			e.logger.Error("Tick stage failed", "operation", "step", "stage", name, "error", err)
			metrics.RecordStageFailure(name)
			report.Failures = append(report.Failures, name)
		}
	}

	stage("presence", func() error {
		report.Spawned = len(e.presence.Tick(e.universe))
		return nil
	})
	stage("systems", func() error {
		return e.universe.TickSystems(e.opts.TickDelta)
	})
	stage("missions", func() error {
		e.missions.Tick(e.universe)
		return nil
	})
	e.universe.PruneCasualties(e.opts.CasualtyRetention)

	report.Tick = e.universe.Tick()
	report.ActiveMissions = e.universe.Board().Len()

	var autosave *universe.Snapshot
	if e.opts.AutosaveEvery > 0 && report.Tick%uint64(e.opts.AutosaveEvery) == 0 {
		snap := e.universe.Snapshot()
		autosave = &snap
	}
	e.mu.Unlock()

	report.Duration = time.Since(start)
	metrics.RecordTick(report.Duration)

	if autosave != nil {
		if _, err := e.store.Save(ctx, e.opts.SnapshotName, *autosave); err != nil {
			e.logger.Error("Autosave failed", "operation", "autosave", "tick", report.Tick, "error", err)
		}
	}
	return report
}

func runStage(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Run steps the engine every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	logger := e.logger.With("operation", "run", "interval", interval)
	logger.Info("Simulation loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Simulation loop stopped", "tick", e.Status().Tick)
			return ctx.Err()
		case <-ticker.C:
			report := e.Step(ctx)
			logger.Debug("Tick complete",
				"tick", report.Tick, "spawned", report.Spawned, "active_missions", report.ActiveMissions, "duration", report.Duration)
		}
	}
}

// View runs fn with shared access to the universe. fn must not mutate it.
func (e *Engine) View(fn func(u *universe.Universe)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.universe)
}

// Update runs fn with exclusive access to the universe.
func (e *Engine) Update(fn func(u *universe.Universe) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.universe)
}

func (e *Engine) Status() universe.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.universe.Status()
}

func (e *Engine) Templates() []mission.Template {
	return e.missions.Templates()
}

// RequestMission asks the agent for a mission. A pre-aborted mission is
// returned without error.
func (e *Engine) RequestMission(agentID, template string) (mission.Mission, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.missions.Generate(e.universe, agentID, template)
	if err != nil {
		return mission.Mission{}, err
	}
	return copyMission(m), nil
}

func (e *Engine) Missions() []mission.Mission {
	e.mu.RLock()
	defer e.mu.RUnlock()

	board := e.universe.Board().Missions()
	out := make([]mission.Mission, 0, len(board))
	for _, m := range board {
		out = append(out, copyMission(m))
	}
	return out
}

func copyMission(m *mission.Mission) mission.Mission {
	c := *m
	c.Targets = append([]string(nil), m.Targets...)
	return c
}

// Messages returns the inbox of recipient, or the player's when empty.
func (e *Engine) Messages(recipient string) []comms.Message {
	if recipient == "" {
		e.mu.RLock()
		recipient = e.universe.PlayerName()
		e.mu.RUnlock()
	}
	return e.inbox.Messages(recipient)
}

func (e *Engine) Kill(id, by string) (entity.Entity, error) {
	if by == "" {
		return entity.Entity{}, errors.Validation("killer faction is required")
	}
	var killed entity.Entity
	err := e.Update(func(u *universe.Universe) error {
		ent, err := u.Kill(id, by)
		if err != nil {
			return err
		}
		killed = *ent
		return nil
	})
	return killed, err
}

func (e *Engine) Save(ctx context.Context, name string) (snapshot.Info, error) {
	if name == "" {
		name = e.opts.SnapshotName
	}
	e.mu.RLock()
	snap := e.universe.Snapshot()
	e.mu.RUnlock()

	return e.store.Save(ctx, name, snap)
}

// Restore replaces the running universe with a stored snapshot.
func (e *Engine) Restore(ctx context.Context, name string) (universe.Status, error) {
	snap, err := e.store.Load(ctx, name)
	if err != nil {
		return universe.Status{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	u, err := universe.Restore(snap, e.opts.Universe, e.logger)
	if err != nil {
		return universe.Status{}, err
	}
	e.universe = u
	metrics.SetActiveMissions(u.Board().Len())
	e.logger.Info("Universe replaced from snapshot", "operation", "restore", "name", name, "tick", u.Tick())
	return u.Status(), nil
}

func (e *Engine) Snapshots(ctx context.Context) ([]snapshot.Info, error) {
	return e.store.List(ctx)
}

func (e *Engine) CurrentTick() uint64 {
	return e.Status().Tick
}
