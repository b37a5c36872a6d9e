package faction

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"astral-server/internal/catalog"
	"astral-server/internal/shared/errors"
)

// Pseudo-factions that never take part in hostility checks.
const (
	Player   = "Player"
	Entities = "Entities"
)

// Patrol is a density target: how many ships of an archetype the faction
// wants flying across its sovereign systems.
type Patrol struct {
	Archetype string `json:"archetype"`
	Density   int    `json:"density"`
}

type Standing struct {
	Faction string  `json:"faction"`
	Value   float64 `json:"value"`
}

// Faction owns its standings. Other packages read them and report deltas
// through ApplyStandingDelta; nothing else writes them.
type Faction struct {
	Name      string
	patrols   []Patrol
	standings map[string]float64
}

func New(name string) *Faction {
	return &Faction{
		Name:      name,
		standings: make(map[string]float64),
	}
}

// FromTerm builds a faction from a catalog record with "patrols" and
// "standings" lists of "Name:value" pairs.
func FromTerm(t catalog.Term) (*Faction, error) {
	if err := t.Require("name"); err != nil {
		return nil, err
	}
	f := New(t.Name())

	var errs []error
	for _, raw := range t.List("patrols") {
		name, value, err := parsePair(raw)
		if err != nil {
			errs = append(errs, errors.WrapMalformedTemplate(fmt.Sprintf("faction %q patrol %q", f.Name, raw), err))
			continue
		}
		density, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, errors.WrapMalformedTemplate(fmt.Sprintf("faction %q patrol %q", f.Name, raw), err))
			continue
		}
		if err := f.SetPatrol(name, density); err != nil {
			errs = append(errs, err)
		}
	}
	for _, raw := range t.List("standings") {
		name, value, err := parsePair(raw)
		if err != nil {
			errs = append(errs, errors.WrapMalformedTemplate(fmt.Sprintf("faction %q standing %q", f.Name, raw), err))
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			errs = append(errs, errors.WrapMalformedTemplate(fmt.Sprintf("faction %q standing %q", f.Name, raw), err))
			continue
		}
		f.standings[name] = v
	}

	if len(errs) > 0 {
		return nil, stderrors.Join(errs...)
	}
	return f, nil
}

func parsePair(raw string) (string, string, error) {
	i := strings.LastIndex(raw, ":")
	if i <= 0 || i == len(raw)-1 {
		return "", "", fmt.Errorf("expected Name:value")
	}
	return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:]), nil
}

// SetPatrol adds or replaces a density target, keeping declaration order.
func (f *Faction) SetPatrol(archetype string, density int) error {
	if archetype == "" {
		return errors.MalformedTemplatef("faction %q: patrol archetype is empty", f.Name)
	}
	if density < 0 {
		return errors.MalformedTemplatef("faction %q: patrol density for %q must not be negative", f.Name, archetype)
	}
	for i := range f.patrols {
		if f.patrols[i].Archetype == archetype {
			f.patrols[i].Density = density
			return nil
		}
	}
	f.patrols = append(f.patrols, Patrol{Archetype: archetype, Density: density})
	return nil
}

func (f *Faction) Patrols() []Patrol {
	return append([]Patrol(nil), f.patrols...)
}

func (f *Faction) Standing(other string) float64 {
	return f.standings[other]
}

// Standings lists every recorded standing sorted by faction name.
func (f *Faction) Standings() []Standing {
	out := make([]Standing, 0, len(f.standings))
	for name, v := range f.standings {
		out = append(out, Standing{Faction: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Faction < out[j].Faction })
	return out
}

// Hostile returns the factions this one holds a negative standing toward,
// sorted, without the Player and Entities pseudo-factions.
func (f *Faction) Hostile() []string {
	var out []string
	for _, s := range f.Standings() {
		if s.Value < 0 && s.Faction != Player && s.Faction != Entities {
			out = append(out, s.Faction)
		}
	}
	return out
}

// ApplyStandingDelta shifts this faction's standing toward other and
// returns the new value.
func (f *Faction) ApplyStandingDelta(other string, delta float64) float64 {
	f.standings[other] += delta
	return f.standings[other]
}

type factionJSON struct {
	Name      string             `json:"name"`
	Patrols   []Patrol           `json:"patrols,omitempty"`
	Standings map[string]float64 `json:"standings,omitempty"`
}

func (f *Faction) MarshalJSON() ([]byte, error) {
	return json.Marshal(factionJSON{Name: f.Name, Patrols: f.patrols, Standings: f.standings})
}

func (f *Faction) UnmarshalJSON(data []byte) error {
	var raw factionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Name = raw.Name
	f.patrols = raw.Patrols
	f.standings = raw.Standings
	if f.standings == nil {
		f.standings = make(map[string]float64)
	}
	return nil
}

// Clone returns an independent copy.
func (f *Faction) Clone() *Faction {
	c := New(f.Name)
	c.patrols = f.Patrols()
	for name, v := range f.standings {
		c.standings[name] = v
	}
	return c
}
