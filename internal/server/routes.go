package server

import (
	"log/slog"
	"net/http"

	"astral-server/internal/game"
	gameHandlers "astral-server/internal/game/handlers"
	"astral-server/internal/middleware"
	serverHandlers "astral-server/internal/server/handlers"
	"astral-server/internal/shared/config"
	"astral-server/internal/shared/database"
	"astral-server/internal/shared/metrics"
	"astral-server/internal/shared/redis"
	universeHandlers "astral-server/internal/universe/handlers"
)

type Routes struct {
	engine        *game.Engine
	authenticator *middleware.Authenticator
	db            *database.DB
	redis         *redis.Client
	metrics       config.MetricsConfig
	logger        *slog.Logger
}

// NewRoutes accepts a nil db or redis client when those backends are off.
func NewRoutes(engine *game.Engine, authenticator *middleware.Authenticator, db *database.DB, rdb *redis.Client, metricsCfg config.MetricsConfig, logger *slog.Logger) *Routes {
	return &Routes{
		engine:        engine,
		authenticator: authenticator,
		db:            db,
		redis:         rdb,
		metrics:       metricsCfg,
		logger:        logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db, r.redis, r.engine)
	universeHandler := universeHandlers.NewUniverseHandler(r.engine)
	gameHandler := gameHandlers.NewGameHandler(r.engine)
	snapshotHandler := gameHandlers.NewSnapshotHandler(r.engine)
	admin := func(h http.HandlerFunc) http.Handler {
		return r.authenticator.RequireAdmin(h)
	}

	// Public endpoints
	mux.Handle("GET /api/server/health", healthHandler)
	mux.HandleFunc("GET /api/universe/status", universeHandler.GetStatus)
	mux.HandleFunc("GET /api/systems", universeHandler.GetSystems)
	mux.HandleFunc("GET /api/systems/{name}", universeHandler.GetSystem)
	mux.HandleFunc("GET /api/factions", universeHandler.GetFactions)
	mux.HandleFunc("GET /api/factions/{name}", universeHandler.GetFaction)
	mux.HandleFunc("GET /api/missions", gameHandler.GetMissions)
	mux.HandleFunc("POST /api/missions", gameHandler.RequestMission)
	mux.HandleFunc("GET /api/messages", gameHandler.GetMessages)

	// Admin-only endpoints (bearer token with admin role)
	mux.Handle("POST /api/admin/tick", admin(gameHandler.Tick))
	mux.Handle("POST /api/admin/entities/{id}/kill", admin(gameHandler.KillEntity))
	mux.Handle("GET /api/admin/snapshots", admin(snapshotHandler.List))
	mux.Handle("POST /api/admin/snapshots", admin(snapshotHandler.Save))
	mux.Handle("POST /api/admin/snapshots/{name}/restore", admin(snapshotHandler.Restore))

	if r.metrics.Enabled {
		metrics.Register()
		mux.Handle("GET "+r.metrics.Path, metrics.Handler())
	}

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/universe/status", "/api/systems", "/api/factions", "/api/missions", "/api/messages"},
		"admin_endpoints", []string{"/api/admin/tick", "/api/admin/entities/{id}/kill", "/api/admin/snapshots"},
		"metrics", r.metrics.Enabled,
	)

	return mux
}
