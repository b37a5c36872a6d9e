package main

import (
	"context"
	"fmt"
	"log/slog"

	"astral-server/internal/catalog"
	"astral-server/internal/comms"
	"astral-server/internal/game"
	"astral-server/internal/shared/config"
	"astral-server/internal/shared/database"
	"astral-server/internal/shared/redis"
	"astral-server/internal/snapshot"
	"astral-server/internal/universe"

	"github.com/nats-io/nats.go"
)

// runtime holds the engine and the backends it was wired to. Backends
// that are switched off stay nil.
type runtime struct {
	engine *game.Engine
	db     *database.DB
	redis  *redis.Client
	nats   *nats.Conn
	logger *slog.Logger
}

func (rt *runtime) Close() {
	if rt.nats != nil {
		if err := rt.nats.Drain(); err != nil {
			rt.logger.Warn("Failed to drain NATS connection", "error", err)
		}
	}
	if err := rt.redis.Close(); err != nil {
		rt.logger.Warn("Failed to close redis", "error", err)
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.logger.Warn("Failed to close database", "error", err)
		}
	}
}

func engineOptions(cfg *config.Config) game.Options {
	sim := cfg.Simulation
	return game.Options{
		TickDelta:         sim.TickDelta,
		AutosaveEvery:     sim.AutosaveEvery,
		SnapshotName:      sim.SnapshotName,
		CasualtyRetention: sim.CasualtyRetention,
		InboxCapacity:     cfg.Messaging.InboxCapacity,
		Seed:              sim.Seed,
		Universe: universe.Options{
			StrictAnchors: sim.StrictAnchors,
			PlayerName:    sim.PlayerName,
			PlayerCash:    sim.PlayerCash,
		},
	}
}

// bootstrap connects the configured backends and builds the engine.
func bootstrap(ctx context.Context, cfg *config.Config) (*runtime, error) {
	logger := slog.With("component", "bootstrap")
	rt := &runtime{logger: logger}

	cat, err := catalog.Load(cfg.Simulation.ContentDir, logger)
	if err != nil {
		return nil, err
	}

	var store snapshot.Store = snapshot.NewMemoryStore()
	if cfg.Database.Driver != "memory" {
		rt.db, err = database.Connect()
		if err != nil {
			return nil, err
		}
		if err := rt.db.RunMigrations(ctx, snapshot.Migrations()); err != nil {
			rt.Close()
			return nil, err
		}
		store = snapshot.NewSQLStore(rt.db, logger)
	}

	rt.redis, err = redis.Connect()
	if err != nil {
		rt.Close()
		return nil, err
	}

	opts := engineOptions(cfg)
	if rt.redis != nil {
		store = snapshot.NewCachedStore(store, rt.redis.Client, cfg.Redis.CacheTTL, logger)
		opts.Sinks = append(opts.Sinks, comms.NewRedisSink(rt.redis.Client, cfg.Messaging.RedisInboxLimit, logger))
	}

	if cfg.Messaging.NATSEnabled {
		rt.nats, err = comms.ConnectNATS(cfg.Messaging.NATSURL, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		opts.Sinks = append(opts.Sinks, comms.NewNATSSink(rt.nats, cfg.Messaging.SubjectPrefix, logger))
	}

	rt.engine, err = game.New(cat, store, opts, slog.Default())
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build universe: %w", err)
	}
	return rt, nil
}
