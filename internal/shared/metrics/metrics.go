package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	ticks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "astral",
			Subsystem: "engine",
			Name:      "ticks_total",
			Help:      "Simulation ticks completed.",
		},
	)
	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "astral",
			Subsystem: "engine",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent in one simulation tick.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
		},
	)
	stageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astral",
			Subsystem: "engine",
			Name:      "stage_failures_total",
			Help:      "Isolated failures at the tick boundary, by stage.",
		},
		[]string{"stage"},
	)
	patrolSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astral",
			Subsystem: "presence",
			Name:      "patrol_spawns_total",
			Help:      "Patrol ships spawned to meet density targets.",
		},
		[]string{"faction", "archetype"},
	)
	resolutionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astral",
			Subsystem: "presence",
			Name:      "resolution_failures_total",
			Help:      "Spawn steps skipped for lack of a zone or anchor.",
		},
		[]string{"faction", "reason"},
	)
	missionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astral",
			Subsystem: "mission",
			Name:      "outcomes_total",
			Help:      "Missions reaching a terminal state.",
		},
		[]string{"type", "outcome"},
	)
	activeMissions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "astral",
			Subsystem: "mission",
			Name:      "active",
			Help:      "Missions on the board.",
		},
	)
	entitiesRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astral",
			Subsystem: "system",
			Name:      "entities_removed_total",
			Help:      "Dead entities removed from systems.",
		},
		[]string{"kind"},
	)
	systemEntities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "astral",
			Subsystem: "system",
			Name:      "entities",
			Help:      "Entities present per system.",
		},
		[]string{"system"},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ticks, tickDuration, stageFailures, patrolSpawns, resolutionFailures,
			missionOutcomes, activeMissions, entitiesRemoved, systemEntities)
	})
}

func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

func RecordTick(duration time.Duration) {
	ticks.Inc()
	tickDuration.Observe(duration.Seconds())
}

func RecordStageFailure(stage string) {
	stageFailures.WithLabelValues(stage).Inc()
}

func RecordPatrolSpawn(faction, archetype string) {
	patrolSpawns.WithLabelValues(faction, archetype).Inc()
}

func RecordResolutionFailure(faction, reason string) {
	resolutionFailures.WithLabelValues(faction, reason).Inc()
}

func RecordMissionOutcome(missionType, outcome string) {
	missionOutcomes.WithLabelValues(missionType, outcome).Inc()
}

func SetActiveMissions(n int) {
	activeMissions.Set(float64(n))
}

func RecordEntityRemoved(kind string) {
	entitiesRemoved.WithLabelValues(kind).Inc()
}

func SetSystemEntities(system string, n int) {
	systemEntities.WithLabelValues(system).Set(float64(n))
}
