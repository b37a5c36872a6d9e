package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandlerExposesAstralMetrics(t *testing.T) {
	RecordStageFailure("missions")
	RecordPatrolSpawn("Pirates", "Raider")
	RecordMissionOutcome("BOUNTY_HUNT", "completed")
	RecordTick(5 * time.Millisecond)
	SetActiveMissions(3)
	SetSystemEntities("Alpha", 12)

	body := scrape(t)

	assert.Contains(t, body, `astral_engine_stage_failures_total{stage="missions"}`)
	assert.Contains(t, body, `astral_presence_patrol_spawns_total{archetype="Raider",faction="Pirates"}`)
	assert.Contains(t, body, `astral_mission_outcomes_total{outcome="completed",type="BOUNTY_HUNT"}`)
	assert.Contains(t, body, "astral_mission_active 3")
	assert.Contains(t, body, `astral_system_entities{system="Alpha"} 12`)
	assert.Contains(t, body, "astral_engine_tick_duration_seconds_bucket")
}
