package handlers

import (
	"log/slog"
	"net/http"

	"astral-server/internal/game"
	"astral-server/internal/shared/response"
	"astral-server/internal/snapshot"
)

type SnapshotHandler struct {
	engine *game.Engine
}

func NewSnapshotHandler(engine *game.Engine) *SnapshotHandler {
	return &SnapshotHandler{engine: engine}
}

type SaveRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/admin/snapshots - Admin only
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_snapshots")

	list, err := h.engine.Snapshots(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if list == nil {
		list = []snapshot.Info{}
	}
	response.Success(w, http.StatusOK, list)
}

// Save handles POST /api/admin/snapshots - Admin only. An empty body saves
// under the configured autosave name.
func (h *SnapshotHandler) Save(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "save_snapshot")

	var req SaveRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			response.Error(w, r, logger, err)
			return
		}
	}

	info, err := h.engine.Save(r.Context(), req.Name)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusCreated, info)
}

// Restore handles POST /api/admin/snapshots/{name}/restore - Admin only
func (h *SnapshotHandler) Restore(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "restore_snapshot")

	status, err := h.engine.Restore(r.Context(), r.PathValue("name"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, status)
}
