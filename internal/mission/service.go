package mission

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"astral-server/internal/comms"
	"astral-server/internal/entity"
	"astral-server/internal/faction"
	"astral-server/internal/shared/errors"
	"astral-server/internal/shared/metrics"
	"astral-server/internal/system"
)

// World is the slice of the universe missions read and act on.
type World interface {
	// Resolve returns the entity behind an ID. Entities already removed
	// from their system may come back as dead records; unknown IDs report
	// false.
	Resolve(id string) (*entity.Entity, bool)
	Faction(name string) (*faction.Faction, bool)
	Systems() []*system.System
	Board() *Board
	PlayerName() string
	Credit(amount int64)
}

// Outcome of one evaluation.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeAborted   Outcome = "aborted"
)

type Service struct {
	templates []Template
	sink      comms.Sink
	rnd       *rand.Rand
	logger    *slog.Logger

	// FailWhen decides whether an active mission has failed. Nil means
	// missions never fail.
	FailWhen func(m *Mission, world World) bool
}

func NewService(templates []Template, sink comms.Sink, rnd *rand.Rand, logger *slog.Logger) *Service {
	logger.Debug("Initializing mission service", "templates", len(templates))

	return &Service{
		templates: templates,
		sink:      sink,
		rnd:       rnd,
		logger:    logger.With("component", "mission"),
	}
}

func (s *Service) Templates() []Template {
	return append([]Template(nil), s.templates...)
}

// Generate offers a mission from the agent. An empty template name picks
// one at random. When no valid target exists the mission comes back
// pre-aborted and the agent says so; it never reaches the board.
func (s *Service) Generate(world World, agentID, templateName string) (*Mission, error) {
	logger := s.logger.With("operation", "generate", "agent_id", agentID, "template", templateName)

	agent, ok := world.Resolve(agentID)
	if !ok || !agent.Alive() {
		return nil, errors.NotFoundf("agent %q not found", agentID)
	}

	m := &Mission{
		ID:           entity.NewID(),
		AgentID:      agent.ID,
		AgentName:    agent.Name,
		AgentFaction: agent.Faction,
		State:        StatePending,
	}

	tpl, err := s.pickTemplate(templateName)
	if err != nil {
		if errors.GetType(err) == errors.ErrorTypeNotFound {
			return nil, err
		}
		logger.Warn("No mission template available", "error", err)
		s.preAbort(world, m)
		return m, nil
	}

	m.Template = tpl.Name
	m.Type = tpl.Type
	m.Reward = tpl.Cash.Draw(s.rnd)
	m.Delta = tpl.Delta.Draw(s.rnd)

	switch tpl.Type {
	case TypeDestroyStation:
		err = s.resolveStation(world, m, tpl.Briefing)
	case TypeBountyHunt:
		err = s.resolveBounty(world, m, tpl.Briefing)
	default:
		err = errors.MalformedTemplatef("mission template %q has unknown type %q", tpl.Name, tpl.Type)
	}
	if err != nil {
		logger.Info("Mission could not be issued", "type", tpl.Type, "error", err)
		s.preAbort(world, m)
		return m, nil
	}

	m.State = StateActive
	world.Board().Add(m)
	metrics.SetActiveMissions(world.Board().Len())

	logger.Info("Mission issued",
		"mission_id", m.ID, "type", m.Type, "reward", m.Reward, "delta", m.Delta, "targets", len(m.Targets))
	return m, nil
}

func (s *Service) pickTemplate(name string) (Template, error) {
	if name != "" {
		for _, t := range s.templates {
			if t.Name == name {
				return t, nil
			}
		}
		return Template{}, errors.NotFoundf("mission template %q not found", name)
	}
	if len(s.templates) == 0 {
		return Template{}, errors.Resolutionf("no mission templates loaded")
	}
	return s.templates[s.rnd.Intn(len(s.templates))], nil
}

// hostileFaction picks one faction the agent's faction stands negative
// toward.
func (s *Service) hostileFaction(world World, m *Mission) (string, error) {
	f, ok := world.Faction(m.AgentFaction)
	if !ok {
		return "", errors.Resolutionf("agent faction %q not found", m.AgentFaction)
	}
	hostile := f.Hostile()
	if len(hostile) == 0 {
		return "", errors.Resolutionf("faction %q has no enemies", f.Name)
	}
	return hostile[s.rnd.Intn(len(hostile))], nil
}

func (s *Service) resolveStation(world World, m *Mission, briefing string) error {
	enemy, err := s.hostileFaction(world, m)
	if err != nil {
		return err
	}

	var pool []*entity.Entity
	for _, sys := range world.Systems() {
		pool = append(pool, sys.Query(system.Filter{Kind: entity.KindStation, Faction: enemy, AliveOnly: true})...)
	}
	if len(pool) == 0 {
		return errors.Resolutionf("faction %q has no live stations", enemy)
	}

	target := pool[s.rnd.Intn(len(pool))]
	m.Targets = []string{target.ID}
	m.Briefing = StationBriefing(briefing, target.Name, target.System)
	return nil
}

func (s *Service) resolveBounty(world World, m *Mission, briefing string) error {
	enemy, err := s.hostileFaction(world, m)
	if err != nil {
		return err
	}

	var pool []*entity.Entity
	for _, sys := range world.Systems() {
		pool = append(pool, sys.Query(system.Filter{Kind: entity.KindShip, Faction: enemy, AliveOnly: true})...)
	}
	if len(pool) == 0 {
		return errors.Resolutionf("faction %q has no live ships", enemy)
	}

	target := pool[s.rnd.Intn(len(pool))]
	m.Targets = []string{target.ID}
	m.Briefing = BountyBriefing(briefing, target.Pilot, target.Hull, target.Name, target.System)
	return nil
}

func (s *Service) preAbort(world World, m *Mission) {
	m.Reward = 0
	m.Delta = 0
	m.Briefing = ""
	m.PreAborted = true
	s.finish(world, m, StateAborted, "Nevermind", "We don't have anything available at the moment.")
}

// Tick evaluates every mission on the board. A mission that fails to
// evaluate is logged and left for the next tick.
func (s *Service) Tick(world World) {
	for _, m := range world.Board().Missions() {
		if _, err := s.safeEvaluate(world, m); err != nil {
			s.logger.Error("Mission evaluation failed",
				"operation", "tick", "mission_id", m.ID, "type", m.Type, "error", err)
			metrics.RecordStageFailure("missions")
		}
	}
	metrics.SetActiveMissions(world.Board().Len())
}

func (s *Service) safeEvaluate(world World, m *Mission) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while evaluating mission: %v", r)
		}
	}()
	return s.Evaluate(world, m), nil
}

// Evaluate checks one mission and fires at most one terminal transition.
// Terminal missions are left alone.
func (s *Service) Evaluate(world World, m *Mission) Outcome {
	if m.State.Terminal() {
		return OutcomePending
	}

	switch s.completion(world, m) {
	case OutcomeCompleted:
		s.complete(world, m)
		return OutcomeCompleted
	case OutcomeAborted:
		s.finish(world, m, StateAborted, "Mission Revoked",
			"Recent events require us to revoke your contract. You can come back for a new mission at your leisure, however.")
		return OutcomeAborted
	}

	if s.FailWhen != nil && s.FailWhen(m, world) {
		s.fail(world, m)
		return OutcomeFailed
	}
	return OutcomePending
}

// completion reports whether every target is down. For bounties each kill
// must be the player's; the first target killed by anyone else revokes
// the contract.
func (s *Service) completion(world World, m *Mission) Outcome {
	for _, id := range m.Targets {
		target, ok := world.Resolve(id)
		if ok && target.Alive() {
			return OutcomePending
		}
		if m.Type == TypeBountyHunt && (!ok || target.LastBlow != faction.Player) {
			return OutcomeAborted
		}
	}
	return OutcomeCompleted
}

func (s *Service) complete(world World, m *Mission) {
	if !s.finish(world, m, StateCompleted, "Mission Completed", "Payment transfered. Have a nice day.") {
		return
	}
	world.Credit(m.Reward)
	s.adjustStanding(world, m, m.Delta)
}

func (s *Service) fail(world World, m *Mission) {
	if !s.finish(world, m, StateFailed, "Mission Failed", "That was pretty sad work you did.") {
		return
	}
	s.adjustStanding(world, m, -m.Delta)
}

func (s *Service) adjustStanding(world World, m *Mission, delta float64) {
	player, ok := world.Faction(faction.Player)
	if !ok {
		s.logger.Warn("Player faction missing, standing unchanged", "mission_id", m.ID)
		return
	}
	standing := player.ApplyStandingDelta(m.AgentFaction, delta)
	s.logger.Debug("Standing adjusted",
		"mission_id", m.ID, "faction", m.AgentFaction, "delta", delta, "standing", standing)
}

// finish moves m into a terminal state, takes it off the board and has
// the agent tell the player. Returns false if m was already terminal.
func (s *Service) finish(world World, m *Mission, state State, subject, body string) bool {
	if m.State.Terminal() {
		return false
	}
	m.State = state
	world.Board().Remove(m.ID)

	comms.Compose(s.sink, m.AgentName, world.PlayerName(), subject, body, m.ID)
	metrics.RecordMissionOutcome(outcomeType(m), strings.ToLower(string(state)))
	s.logger.Info("Mission finished",
		"operation", "finish", "mission_id", m.ID, "type", m.Type, "state", state, "pre_aborted", m.PreAborted)
	return true
}

func outcomeType(m *Mission) string {
	if m.Type == "" {
		return "none"
	}
	return string(m.Type)
}
