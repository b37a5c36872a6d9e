package universe

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"astral-server/internal/catalog"
	"astral-server/internal/entity"
	"astral-server/internal/faction"
	"astral-server/internal/mission"
	"astral-server/internal/shared/errors"
	"astral-server/internal/system"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const content = `
[[System]]
name = "Alpha"
owner = "Pirates"

[[System]]
name = "Beta"
owner = "Navy"
x = 40000

[[Faction]]
name = "Pirates"
patrols = ["Raider:2"]
standings = ["Navy:-40"]

[[Faction]]
name = "Navy"
standings = ["Pirates:-60", "Player:5"]

[[Planet]]
system = "Alpha"
name = "Alpha I"
x = 1000
y = 1000

[[Planet]]
system = "Beta"
name = "Beta I"
x = 0
y = 0

[[Station]]
system = "Alpha"
name = "Rock Hollow"
ship = "Outpost"
faction = "Pirates"
near = "Alpha I"

[[Ship]]
system = "Beta"
name = "Vigilant"
ship = "Frigate"
faction = "Navy"
near = "Beta I"

[[Jumphole]]
system = "Alpha"
name = "Alpha-Beta"
out = "Beta"
x = 9000
y = 0
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func build(t *testing.T, data string, opts Options) (*Universe, error) {
	t.Helper()
	cat, err := catalog.Parse(data)
	require.NoError(t, err)
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(11))
	}
	if opts.PlayerName == "" {
		opts.PlayerName = "Captain"
	}
	return Build(cat, entity.NewFactory(opts.Rand, quietLogger()), opts, quietLogger())
}

func TestBuild(t *testing.T) {
	u, err := build(t, content, Options{StrictAnchors: true, PlayerCash: 500})
	require.NoError(t, err)

	assert.Len(t, u.Systems(), 2)
	names := []string{}
	for _, f := range u.Factions() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Pirates", "Navy", faction.Player}, names)

	assert.Len(t, u.SovereignSystems("Navy"), 1)
	assert.Empty(t, u.SovereignSystems("Traders"))

	alpha, ok := u.System("Alpha")
	require.True(t, ok)
	assert.Equal(t, 3, alpha.Len())
	assert.Len(t, alpha.Celestials(), 2)

	assert.Equal(t, Player{Name: "Captain", Faction: faction.Player, Cash: 500}, u.Player())
	status := u.Status()
	assert.Equal(t, 5, status.Entities)
	assert.Equal(t, 3, status.Factions)
}

func TestBuildAnchorStrictness(t *testing.T) {
	broken := content + `
[[Ship]]
system = "Beta"
name = "Stray"
ship = "Skiff"
near = "Beta IX"
`
	_, err := build(t, broken, Options{StrictAnchors: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeMalformedTemplate))
	assert.ErrorIs(t, err, system.ErrUnresolvedAnchor)

	u, err := build(t, broken, Options{StrictAnchors: false})
	require.NoError(t, err)
	beta, _ := u.System("Beta")
	stray, ok := beta.FindByName("Stray")
	require.True(t, ok)
	assert.Zero(t, stray.X)
	assert.Zero(t, stray.Y)
}

func TestBuildRejectsBadContent(t *testing.T) {
	cases := map[string]string{
		"unknown system": `
[[Planet]]
system = "Nowhere"
name = "Lost"
`,
		"duplicate system": `
[[System]]
name = "Alpha"
[[System]]
name = "Alpha"
`,
		"bad standing": `
[[Faction]]
name = "Navy"
standings = ["Pirates"]
`,
		"jumphole to nowhere": `
[[System]]
name = "Alpha"
[[Jumphole]]
system = "Alpha"
name = "Gate"
out = "Omega"
x = 0
y = 0
`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := build(t, data, Options{StrictAnchors: false})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrorTypeMalformedTemplate))
		})
	}
}

func TestTickSystemsRecordsCasualties(t *testing.T) {
	u, err := build(t, content, Options{StrictAnchors: true})
	require.NoError(t, err)

	beta, _ := u.System("Beta")
	vigilant, ok := beta.FindByName("Vigilant")
	require.True(t, ok)

	_, err = u.Kill(vigilant.ID, faction.Player)
	require.NoError(t, err)
	_, err = u.Kill(vigilant.ID, "Pirates")
	assert.True(t, errors.Is(err, errors.ErrorTypeConflict))

	require.NoError(t, u.TickSystems(1))
	assert.False(t, beta.Contains(vigilant.ID))
	assert.Equal(t, uint64(1), u.Tick())

	resolved, ok := u.Resolve(vigilant.ID)
	require.True(t, ok)
	assert.False(t, resolved.Alive())
	assert.Equal(t, faction.Player, resolved.LastBlow)
	assert.Equal(t, "Beta", resolved.System)

	_, ok = u.Resolve("never-existed")
	assert.False(t, ok)
}

func TestPruneCasualtiesKeepsMissionTargets(t *testing.T) {
	u, err := build(t, content, Options{StrictAnchors: true})
	require.NoError(t, err)

	beta, _ := u.System("Beta")
	alpha, _ := u.System("Alpha")
	vigilant, _ := beta.FindByName("Vigilant")
	hollow, _ := alpha.FindByName("Rock Hollow")

	u.Board().Add(&mission.Mission{ID: "m", Targets: []string{hollow.ID}, State: mission.StateActive})
	vigilant.Kill("Pirates")
	hollow.Kill("Navy")
	require.NoError(t, u.TickSystems(1))

	for i := 0; i < 5; i++ {
		require.NoError(t, u.TickSystems(1))
	}
	assert.Equal(t, 1, u.PruneCasualties(3))

	_, ok := u.Resolve(hollow.ID)
	assert.True(t, ok)
	_, ok = u.Resolve(vigilant.ID)
	assert.False(t, ok)

	assert.Zero(t, u.PruneCasualties(0))
}

func TestSnapshotRestore(t *testing.T) {
	u, err := build(t, content, Options{StrictAnchors: true, PlayerCash: 42})
	require.NoError(t, err)

	alpha, _ := u.System("Alpha")
	hollow, _ := alpha.FindByName("Rock Hollow")
	u.Board().Add(&mission.Mission{ID: "m", Type: mission.TypeDestroyStation, Targets: []string{hollow.ID}, State: mission.StateActive})
	navy, _ := u.Faction("Navy")
	navy.ApplyStandingDelta("Player", 2)
	require.NoError(t, u.TickSystems(1))

	snap := u.Snapshot()

	// the snapshot shares nothing with the live universe
	hollow.Name = "Renamed"
	navy.ApplyStandingDelta("Player", 100)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	restored, err := Restore(decoded, Options{}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), restored.Tick())
	assert.Equal(t, int64(42), restored.Player().Cash)
	rAlpha, ok := restored.System("Alpha")
	require.True(t, ok)
	rHollow, ok := rAlpha.Get(hollow.ID)
	require.True(t, ok)
	assert.Equal(t, "Rock Hollow", rHollow.Name)
	rNavy, _ := restored.Faction("Navy")
	assert.Equal(t, 7.0, rNavy.Standing("Player"))
	m, ok := restored.Board().Get("m")
	require.True(t, ok)
	assert.Equal(t, []string{hollow.ID}, m.Targets)

	decoded.Version = 99
	_, err = Restore(decoded, Options{}, quietLogger())
	assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
}

func TestSystemDetailFilters(t *testing.T) {
	u, err := build(t, content, Options{StrictAnchors: true})
	require.NoError(t, err)

	detail, err := u.SystemDetail("Alpha", system.Filter{Kind: entity.KindStation})
	require.NoError(t, err)
	require.Len(t, detail.Members, 1)
	assert.Equal(t, "Rock Hollow", detail.Members[0].Name)
	assert.Equal(t, 1, detail.Stations)

	_, err = u.SystemDetail("Omega", system.Filter{})
	assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
}
