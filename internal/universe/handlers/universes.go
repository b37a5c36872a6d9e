package handlers

import (
	"log/slog"
	"net/http"

	"astral-server/internal/entity"
	"astral-server/internal/faction"
	"astral-server/internal/shared/errors"
	"astral-server/internal/shared/response"
	"astral-server/internal/system"
	"astral-server/internal/universe"
)

// Viewer grants read access to the running universe.
type Viewer interface {
	View(fn func(u *universe.Universe))
}

type UniverseHandler struct {
	viewer Viewer
}

func NewUniverseHandler(viewer Viewer) *UniverseHandler {
	return &UniverseHandler{viewer: viewer}
}

type FactionView struct {
	Name      string             `json:"name"`
	Patrols   []faction.Patrol   `json:"patrols"`
	Standings []faction.Standing `json:"standings"`
	Hostile   []string           `json:"hostile"`
	Sovereign []string           `json:"sovereign_systems"`
}

func factionView(u *universe.Universe, f *faction.Faction) FactionView {
	v := FactionView{
		Name:      f.Name,
		Patrols:   f.Patrols(),
		Standings: f.Standings(),
		Hostile:   f.Hostile(),
		Sovereign: []string{},
	}
	for _, s := range u.SovereignSystems(f.Name) {
		v.Sovereign = append(v.Sovereign, s.Name)
	}
	return v
}

// GetStatus handles GET /api/universe/status
func (h *UniverseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var status universe.Status
	h.viewer.View(func(u *universe.Universe) {
		status = u.Status()
	})
	response.Success(w, http.StatusOK, status)
}

// GetSystems handles GET /api/systems
func (h *UniverseHandler) GetSystems(w http.ResponseWriter, r *http.Request) {
	var systems []universe.SystemSummary
	h.viewer.View(func(u *universe.Universe) {
		systems = u.SystemSummaries()
	})
	response.Success(w, http.StatusOK, systems)
}

// GetSystem handles GET /api/systems/{name}?kind=&faction=&archetype=&behavior=&alive=
func (h *UniverseHandler) GetSystem(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_system")

	name := r.PathValue("name")
	if name == "" {
		response.Error(w, r, logger, errors.Validation("system name is required"))
		return
	}

	q := r.URL.Query()
	filter := system.Filter{
		Kind:      entity.Kind(q.Get("kind")),
		Faction:   q.Get("faction"),
		Archetype: q.Get("archetype"),
		Behavior:  entity.Behavior(q.Get("behavior")),
		AliveOnly: q.Get("alive") == "true",
	}

	var (
		detail universe.SystemDetail
		err    error
	)
	h.viewer.View(func(u *universe.Universe) {
		detail, err = u.SystemDetail(name, filter)
	})
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, detail)
}

// GetFactions handles GET /api/factions
func (h *UniverseHandler) GetFactions(w http.ResponseWriter, r *http.Request) {
	var views []FactionView
	h.viewer.View(func(u *universe.Universe) {
		for _, f := range u.Factions() {
			views = append(views, factionView(u, f))
		}
	})
	response.Success(w, http.StatusOK, views)
}

// GetFaction handles GET /api/factions/{name}
func (h *UniverseHandler) GetFaction(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_faction")
	name := r.PathValue("name")

	var (
		view  FactionView
		found bool
	)
	h.viewer.View(func(u *universe.Universe) {
		if f, ok := u.Faction(name); ok {
			view, found = factionView(u, f), true
		}
	})
	if !found {
		response.Error(w, r, logger, errors.NotFoundf("faction %q not found", name))
		return
	}
	response.Success(w, http.StatusOK, view)
}
