package faction

import (
	"encoding/json"
	"testing"

	"astral-server/internal/catalog"
	"astral-server/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTerm(t *testing.T) {
	term := catalog.NewTerm(catalog.KindFaction, catalog.Values{"name": "Pirates"}).
		WithList("patrols", "Raider:2", "Heavy Raider: 1").
		WithList("standings", "Navy:-10", "Traders:-2.5", "Player:-5", "Entities:-1", "Smugglers:4")

	f, err := FromTerm(term)
	require.NoError(t, err)

	assert.Equal(t, []Patrol{{"Raider", 2}, {"Heavy Raider", 1}}, f.Patrols())
	assert.Equal(t, -2.5, f.Standing("Traders"))
	assert.Equal(t, []string{"Navy", "Traders"}, f.Hostile())
}

func TestFromTermRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		term catalog.Term
	}{
		{"no name", catalog.NewTerm(catalog.KindFaction, catalog.Values{})},
		{"negative density", catalog.NewTerm(catalog.KindFaction, catalog.Values{"name": "X"}).WithList("patrols", "Raider:-1")},
		{"bad density", catalog.NewTerm(catalog.KindFaction, catalog.Values{"name": "X"}).WithList("patrols", "Raider:two")},
		{"no separator", catalog.NewTerm(catalog.KindFaction, catalog.Values{"name": "X"}).WithList("standings", "Navy")},
		{"bad standing", catalog.NewTerm(catalog.KindFaction, catalog.Values{"name": "X"}).WithList("standings", "Navy:low")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromTerm(tt.term)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrorTypeMalformedTemplate))
		})
	}
}

func TestApplyStandingDelta(t *testing.T) {
	f := New(Player)

	assert.Equal(t, 0.0, f.Standing("Navy"))
	assert.Equal(t, 2.5, f.ApplyStandingDelta("Navy", 2.5))
	assert.Equal(t, -0.5, f.ApplyStandingDelta("Navy", -3))
	assert.Equal(t, []Standing{{Faction: "Navy", Value: -0.5}}, f.Standings())
}

func TestSetPatrolReplaces(t *testing.T) {
	f := New("Navy")
	require.NoError(t, f.SetPatrol("Frigate", 2))
	require.NoError(t, f.SetPatrol("Corvette", 1))
	require.NoError(t, f.SetPatrol("Frigate", 4))

	assert.Equal(t, []Patrol{{"Frigate", 4}, {"Corvette", 1}}, f.Patrols())
	assert.Error(t, f.SetPatrol("", 1))
}

func TestJSONRoundTripKeepsStandings(t *testing.T) {
	f := New("Navy")
	require.NoError(t, f.SetPatrol("Frigate", 3))
	f.ApplyStandingDelta("Pirates", -7)

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var back Faction
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "Navy", back.Name)
	assert.Equal(t, -7.0, back.Standing("Pirates"))
	assert.Equal(t, f.Patrols(), back.Patrols())
	back.ApplyStandingDelta("Traders", 1)
}

func TestCloneIsIndependent(t *testing.T) {
	f := New("Navy")
	f.ApplyStandingDelta("Pirates", -5)
	require.NoError(t, f.SetPatrol("Frigate", 2))

	c := f.Clone()
	c.ApplyStandingDelta("Pirates", -5)
	require.NoError(t, c.SetPatrol("Frigate", 9))

	assert.Equal(t, -5.0, f.Standing("Pirates"))
	assert.Equal(t, 2, f.Patrols()[0].Density)
	assert.Equal(t, -10.0, c.Standing("Pirates"))
}
