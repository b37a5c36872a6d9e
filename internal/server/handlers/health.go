package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"astral-server/internal/shared/database"
	"astral-server/internal/shared/redis"
	"astral-server/internal/shared/response"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Tick      uint64 `json:"tick"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
}

// TickSource reports the current simulation tick.
type TickSource interface {
	CurrentTick() uint64
}

type HealthHandler struct {
	db     *database.DB
	redis  *redis.Client
	ticker TickSource
}

// NewHealthHandler accepts nil db or redis when those backends are not
// configured.
func NewHealthHandler(db *database.DB, rdb *redis.Client, ticker TickSource) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, ticker: ticker}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = "connected"
		if err := h.db.PingContext(r.Context()); err != nil {
			dbStatus = "disconnected"
			logger.Warn("Database ping failed", "error", err)
		}
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "connected"
		if err := h.redis.Ping(r.Context()).Err(); err != nil {
			redisStatus = "disconnected"
			logger.Warn("Redis ping failed", "error", err)
		}
	}

	status := "healthy"
	if dbStatus == "disconnected" || redisStatus == "disconnected" {
		status = "degraded"
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Tick:      h.ticker.CurrentTick(),
		Database:  dbStatus,
		Redis:     redisStatus,
	}

	response.Success(w, http.StatusOK, resp)
}
