package mission

import (
	stderrors "errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"astral-server/internal/catalog"
	"astral-server/internal/shared/errors"
)

// IntRange is an inclusive range written "min>max" in content.
type IntRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// FloatRange is a range written "min>max" in content. Draws are
// half-open at Max unless Min equals Max.
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func splitRange(raw string) (string, string) {
	lo, hi, found := strings.Cut(strings.TrimSpace(raw), ">")
	if !found {
		return lo, lo
	}
	return strings.TrimSpace(lo), strings.TrimSpace(hi)
}

// ParseIntRange accepts "min>max" or a single value.
func ParseIntRange(raw string) (IntRange, error) {
	lo, hi := splitRange(raw)
	min, err := strconv.ParseInt(lo, 10, 64)
	if err != nil {
		return IntRange{}, errors.WrapMalformedTemplate(fmt.Sprintf("range %q", raw), err)
	}
	max, err := strconv.ParseInt(hi, 10, 64)
	if err != nil {
		return IntRange{}, errors.WrapMalformedTemplate(fmt.Sprintf("range %q", raw), err)
	}
	if min > max {
		return IntRange{}, errors.MalformedTemplatef("range %q has min above max", raw)
	}
	if uint64(max)-uint64(min) >= math.MaxInt64 {
		return IntRange{}, errors.MalformedTemplatef("range %q is too wide", raw)
	}
	return IntRange{Min: min, Max: max}, nil
}

// ParseFloatRange accepts "min>max" or a single value.
func ParseFloatRange(raw string) (FloatRange, error) {
	lo, hi := splitRange(raw)
	min, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return FloatRange{}, errors.WrapMalformedTemplate(fmt.Sprintf("range %q", raw), err)
	}
	max, err := strconv.ParseFloat(hi, 64)
	if err != nil {
		return FloatRange{}, errors.WrapMalformedTemplate(fmt.Sprintf("range %q", raw), err)
	}
	if min > max {
		return FloatRange{}, errors.MalformedTemplatef("range %q has min above max", raw)
	}
	return FloatRange{Min: min, Max: max}, nil
}

// Draw returns a uniform value in [Min, Max].
func (r IntRange) Draw(rnd *rand.Rand) int64 {
	return r.Min + rnd.Int63n(r.Max-r.Min+1)
}

// Draw returns a uniform value in [Min, Max).
func (r FloatRange) Draw(rnd *rand.Rand) float64 {
	return r.Min + rnd.Float64()*(r.Max-r.Min)
}

// Template is a parsed Mission record.
type Template struct {
	Name     string     `json:"name"`
	Type     Type       `json:"type"`
	Cash     IntRange   `json:"cash"`
	Delta    FloatRange `json:"delta"`
	Briefing string     `json:"briefing"`
}

func ParseTemplate(t catalog.Term) (Template, error) {
	if err := t.Require("type", "cash", "delta", "briefing"); err != nil {
		return Template{}, err
	}

	tpl := Template{
		Name:     t.Name(),
		Type:     Type(strings.TrimSpace(t.Value("type"))),
		Briefing: t.Value("briefing"),
	}
	if !tpl.Type.Valid() {
		return Template{}, errors.MalformedTemplatef("mission template %s has unknown type %q", t.Source, tpl.Type)
	}

	cash, err := ParseIntRange(t.Value("cash"))
	if err != nil {
		return Template{}, errors.WrapMalformedTemplate(fmt.Sprintf("mission template %s cash", t.Source), err)
	}
	delta, err := ParseFloatRange(t.Value("delta"))
	if err != nil {
		return Template{}, errors.WrapMalformedTemplate(fmt.Sprintf("mission template %s delta", t.Source), err)
	}
	tpl.Cash, tpl.Delta = cash, delta
	return tpl, nil
}

// LoadTemplates parses every Mission record. Unnamed templates are named
// after their type and position.
func LoadTemplates(cat *catalog.Catalog) ([]Template, error) {
	var (
		templates []Template
		errs      []error
	)
	for i, t := range cat.TermsOfType(catalog.KindMission) {
		tpl, err := ParseTemplate(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if tpl.Name == "" {
			tpl.Name = fmt.Sprintf("%s-%d", strings.ToLower(string(tpl.Type)), i+1)
		}
		templates = append(templates, tpl)
	}
	return templates, stderrors.Join(errs...)
}

// StationBriefing fills a DESTROY_STATION briefing.
func StationBriefing(text, target, location string) string {
	return strings.NewReplacer(
		"<TARGET>", target,
		"<LOCATION>", location,
	).Replace(text)
}

// BountyBriefing fills a BOUNTY_HUNT briefing.
func BountyBriefing(text, pilot, hull, shipName, location string) string {
	return strings.NewReplacer(
		"<NAME>", pilot,
		"<SHIPNAME>", shipName,
		"<SHIP>", hull,
		"<LOCATION>", location,
	).Replace(text)
}
