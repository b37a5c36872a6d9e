// Package catalog holds the declarative content of a world: systems,
// factions, placement records, loadouts and mission templates. Content is
// authored as TOML arrays of tables, one table per record:
//
//	[[Planet]]
//	system = "Alpha"
//	name = "Alpha Prime"
//	x = 1200
//	y = -400
//
// Every record becomes a Term of the table's kind, kept in file order.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"astral-server/internal/shared/errors"

	"github.com/BurntSushi/toml"
)

const (
	KindSystem   = "System"
	KindFaction  = "Faction"
	KindPlanet   = "Planet"
	KindShip     = "Ship"
	KindStation  = "Station"
	KindJumphole = "Jumphole"
	KindLoadout  = "Loadout"
	KindMission  = "Mission"
)

// Values is the scalar field set of a record, used when building
// catalogs in code.
type Values map[string]string

// Term is one named key/value record.
type Term struct {
	Kind   string
	Source string
	values map[string]string
	lists  map[string][]string
}

func NewTerm(kind string, values Values) Term {
	t := Term{Kind: kind, values: make(map[string]string, len(values)), lists: map[string][]string{}}
	for k, v := range values {
		t.values[k] = v
	}
	return t
}

// WithList returns a copy of the term carrying a list field.
func (t Term) WithList(key string, items ...string) Term {
	lists := make(map[string][]string, len(t.lists)+1)
	for k, v := range t.lists {
		lists[k] = v
	}
	lists[key] = append([]string(nil), items...)
	t.lists = lists
	return t
}

func (t Term) Name() string {
	return t.values["name"]
}

func (t Term) Value(key string) string {
	return t.values[key]
}

func (t Term) Lookup(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

func (t Term) Has(key string) bool {
	_, ok := t.values[key]
	return ok
}

func (t Term) List(key string) []string {
	return t.lists[key]
}

// Require reports a malformed template when any key is absent or blank.
func (t Term) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(t.values[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.MalformedTemplatef("%s record %s is missing %s", t.Kind, t.label(), strings.Join(missing, ", "))
	}
	return nil
}

// Float parses a numeric field. The bool reports whether the field exists.
func (t Term) Float(key string) (float64, bool, error) {
	raw, ok := t.values[key]
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, true, errors.WrapMalformedTemplate(
			fmt.Sprintf("%s record %s has a non-numeric %s", t.Kind, t.label(), key), err)
	}
	return f, true, nil
}

func (t Term) label() string {
	if name := t.Name(); name != "" {
		return strconv.Quote(name)
	}
	if t.Source != "" {
		return "in " + t.Source
	}
	return "(unnamed)"
}

// Catalog is a read-only lookup of terms by kind once loaded.
type Catalog struct {
	terms map[string][]Term
}

func New() *Catalog {
	return &Catalog{terms: make(map[string][]Term)}
}

// Add appends a term. Used by loaders and by tests building worlds in code.
func (c *Catalog) Add(t Term) {
	c.terms[t.Kind] = append(c.terms[t.Kind], t)
}

// TermsOfType returns the records of one kind in declaration order.
func (c *Catalog) TermsOfType(kind string) []Term {
	return c.terms[kind]
}

// Find returns the first record of a kind with the given name.
func (c *Catalog) Find(kind, name string) (Term, bool) {
	for _, t := range c.terms[kind] {
		if t.Name() == name {
			return t, true
		}
	}
	return Term{}, false
}

func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.terms))
	for k := range c.terms {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (c *Catalog) Len() int {
	n := 0
	for _, ts := range c.terms {
		n += len(ts)
	}
	return n
}

// Parse decodes one TOML document into a catalog.
func Parse(data string) (*Catalog, error) {
	c := New()
	var raw map[string]interface{}
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, errors.WrapMalformedTemplate("failed to decode content", err)
	}
	if err := c.merge(raw, "inline"); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads every *.toml file in dir, in lexical order.
func Load(dir string, logger *slog.Logger) (*Catalog, error) {
	logger = logger.With("component", "catalog", "operation", "load", "dir", dir)
	logger.Debug("Loading content catalog")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".toml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	c := New()
	for _, path := range files {
		var raw map[string]interface{}
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return nil, errors.WrapMalformedTemplate(fmt.Sprintf("failed to decode %s", path), err)
		}
		if err := c.merge(raw, filepath.Base(path)); err != nil {
			return nil, err
		}
		logger.Debug("Content file loaded", "file", path)
	}

	logger.Info("Content catalog loaded", "files", len(files), "terms", c.Len())
	return c, nil
}

func (c *Catalog) merge(raw map[string]interface{}, source string) error {
	kinds := make([]string, 0, len(raw))
	for k := range raw {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		records, ok := raw[kind].([]map[string]interface{})
		if !ok {
			return errors.MalformedTemplatef("%s: %q must be an array of tables", source, kind)
		}
		for i, rec := range records {
			t := Term{
				Kind:   kind,
				Source: fmt.Sprintf("%s#%d", source, i+1),
				values: make(map[string]string, len(rec)),
				lists:  map[string][]string{},
			}
			for key, v := range rec {
				if err := t.set(key, v); err != nil {
					return err
				}
			}
			c.Add(t)
		}
	}
	return nil
}

func (t *Term) set(key string, v interface{}) error {
	switch val := v.(type) {
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, err := scalar(item)
			if err != nil {
				return errors.WrapMalformedTemplate(fmt.Sprintf("%s record %s field %s", t.Kind, t.Source, key), err)
			}
			items = append(items, s)
		}
		t.lists[key] = items
	default:
		s, err := scalar(val)
		if err != nil {
			return errors.WrapMalformedTemplate(fmt.Sprintf("%s record %s field %s", t.Kind, t.Source, key), err)
		}
		t.values[key] = s
	}
	return nil
}

func scalar(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}
