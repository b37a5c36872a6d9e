package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"astral-server/internal/auth"
	"astral-server/internal/catalog"
	"astral-server/internal/game"
	"astral-server/internal/middleware"
	"astral-server/internal/mission"
	"astral-server/internal/shared/config"
	"astral-server/internal/universe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const content = `
[[System]]
name = "Sol"
owner = "Navy"

[[System]]
name = "Alpha"
owner = "Pirates"

[[Faction]]
name = "Navy"
standings = ["Pirates:-50"]

[[Faction]]
name = "Pirates"
standings = ["Navy:-50"]

[[Planet]]
system = "Sol"
name = "Earth"
x = 100
y = 100

[[Station]]
system = "Sol"
name = "Navy Command"
ship = "Citadel"
faction = "Navy"
near = "Earth"

[[Station]]
system = "Alpha"
name = "Rock Hollow"
ship = "Outpost"
faction = "Pirates"
x = 500
y = 500

[[Mission]]
name = "strike"
type = "DESTROY_STATION"
cash = "1000"
delta = "1"
briefing = "Destroy <TARGET> in <LOCATION>."
`

type fixture struct {
	engine  *game.Engine
	handler http.Handler
	admin   string
	viewer  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cat, err := catalog.Parse(content)
	require.NoError(t, err)
	opts := game.Options{Seed: 3, InboxCapacity: 20, SnapshotName: "autosave"}
	opts.Universe.StrictAnchors = true
	opts.Universe.PlayerName = "Captain"
	engine, err := game.New(cat, nil, opts, logger)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	admin, err := tokens.Generate("ops", auth.RoleAdmin)
	require.NoError(t, err)
	viewer, err := tokens.Generate("viewer", auth.RoleObserver)
	require.NoError(t, err)

	routes := NewRoutes(engine, middleware.NewAuthenticator(tokens), nil, nil, config.MetricsConfig{}, logger)
	return &fixture{engine: engine, handler: routes.Setup(), admin: admin, viewer: viewer}
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) stationID(t *testing.T, sys, name string) string {
	t.Helper()
	var id string
	f.engine.View(func(u *universe.Universe) {
		s, ok := u.System(sys)
		require.True(t, ok)
		e, ok := s.FindByName(name)
		require.True(t, ok)
		id = e.ID
	})
	return id
}

func TestPublicReads(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/server/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "disabled", health["database"])

	rec = f.do(t, http.MethodGet, "/api/universe/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status universe.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2, status.Systems)
	assert.Equal(t, "Captain", status.Player.Name)

	rec = f.do(t, http.MethodGet, "/api/systems/Sol?kind=station", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail universe.SystemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Members, 1)
	assert.Equal(t, "Navy Command", detail.Members[0].Name)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/systems/Nowhere", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/factions/Nobody", "", nil).Code)

	rec = f.do(t, http.MethodGet, "/api/factions/Navy", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hostile":["Pirates"]`)
}

func TestMissionOverHTTP(t *testing.T) {
	f := newFixture(t)
	agent := f.stationID(t, "Sol", "Navy Command")
	target := f.stationID(t, "Alpha", "Rock Hollow")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/missions", "", game.MissionRequest{}).Code)

	rec := f.do(t, http.MethodPost, "/api/missions", "", game.MissionRequest{AgentID: agent, Template: "strike"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var m mission.Mission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, []string{target}, m.Targets)
	assert.Equal(t, "Destroy Rock Hollow in Alpha.", m.Briefing)

	kill := game.KillRequest{By: "Player"}
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/admin/entities/"+target+"/kill", "", kill).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/admin/entities/"+target+"/kill", f.viewer, kill).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/admin/entities/"+target+"/kill", f.admin, kill).Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/admin/entities/"+target+"/kill", f.admin, kill).Code)

	rec = f.do(t, http.MethodPost, "/api/admin/tick", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/missions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/messages", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mission Completed")
	assert.Equal(t, int64(1000), f.engine.Status().Player.Cash)
}

func TestSnapshotsOverHTTP(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/api/admin/tick", f.admin, nil)
	rec := f.do(t, http.MethodPost, "/api/admin/snapshots", f.admin, map[string]string{"name": "checkpoint"})
	require.Equal(t, http.StatusCreated, rec.Code)

	f.do(t, http.MethodPost, "/api/admin/tick", f.admin, nil)
	require.Equal(t, uint64(2), f.engine.CurrentTick())

	rec = f.do(t, http.MethodPost, "/api/admin/snapshots/checkpoint/restore", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1), f.engine.CurrentTick())

	rec = f.do(t, http.MethodGet, "/api/admin/snapshots", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checkpoint")

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/admin/snapshots/missing/restore", f.admin, nil).Code)
}
