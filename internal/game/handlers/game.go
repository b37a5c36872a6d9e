package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"astral-server/internal/game"
	"astral-server/internal/shared/errors"
	"astral-server/internal/shared/response"
)

type GameHandler struct {
	engine *game.Engine
}

func NewGameHandler(engine *game.Engine) *GameHandler {
	return &GameHandler{engine: engine}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.WrapValidation("invalid JSON in request body", err)
	}
	return nil
}

// GetMissions handles GET /api/missions
func (h *GameHandler) GetMissions(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, h.engine.Missions())
}

// RequestMission handles POST /api/missions
func (h *GameHandler) RequestMission(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "request_mission")

	var req game.MissionRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if req.AgentID == "" {
		response.Error(w, r, logger, errors.Validation("agent_id is required"))
		return
	}

	m, err := h.engine.RequestMission(req.AgentID, req.Template)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	status := http.StatusCreated
	if m.PreAborted {
		status = http.StatusOK
	}
	response.Success(w, status, m)
}

// GetMessages handles GET /api/messages?to=
func (h *GameHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, h.engine.Messages(r.URL.Query().Get("to")))
}

// Tick handles POST /api/admin/tick - Admin only
func (h *GameHandler) Tick(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, h.engine.Step(r.Context()))
}

// KillEntity handles POST /api/admin/entities/{id}/kill - Admin only
func (h *GameHandler) KillEntity(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "kill_entity")

	var req game.KillRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	killed, err := h.engine.Kill(r.PathValue("id"), req.By)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, killed)
}
