package game

import (
	"time"

	"astral-server/internal/comms"
	"astral-server/internal/universe"
)

type Options struct {
	TickDelta         float64
	AutosaveEvery     int
	SnapshotName      string
	CasualtyRetention uint64
	InboxCapacity     int
	Seed              int64
	Universe          universe.Options

	// Sinks receive every message besides the in-memory inbox.
	Sinks []comms.Sink
}

// StepReport summarizes one tick.
type StepReport struct {
	Tick           uint64        `json:"tick"`
	Spawned        int           `json:"spawned"`
	ActiveMissions int           `json:"active_missions"`
	Failures       []string      `json:"failures,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}

type MissionRequest struct {
	AgentID  string `json:"agent_id"`
	Template string `json:"template"`
}

type KillRequest struct {
	By string `json:"by"`
}
