package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"astral-server/internal/auth"
	"astral-server/internal/middleware"
	"astral-server/internal/server"
	"astral-server/internal/shared/config"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var restore string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation loop and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GlobalConfig
			if err := cfg.ValidateServer(); err != nil {
				return fmt.Errorf("invalid server configuration: %w", err)
			}
			logger := slog.With("component", "serve")
			ctx := cmd.Context()

			rt, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if restore != "" {
				status, err := rt.engine.Restore(ctx, restore)
				if err != nil {
					return fmt.Errorf("failed to restore snapshot %s: %w", restore, err)
				}
				logger.Info("Resumed from snapshot", "name", restore, "tick", status.Tick)
			}

			tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)
			if err != nil {
				return err
			}

			routes := server.NewRoutes(rt.engine, middleware.NewAuthenticator(tokens), rt.db, rt.redis, cfg.Metrics, slog.Default())
			cors := middleware.NewCORS(cfg.Frontend)
			limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit)

			httpSrv := &http.Server{
				Addr:         ":" + cfg.Server.Port,
				Handler:      cors.Middleware(limiter.Middleware(routes.Setup())),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			loopErr := make(chan error, 1)
			go func() {
				loopErr <- rt.engine.Run(ctx, cfg.Simulation.TickInterval)
			}()

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", "addr", httpSrv.Addr, "environment", cfg.Server.Environment)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serveErr <- fmt.Errorf("HTTP server: %w", err)
				}
				close(serveErr)
			}()

			select {
			case <-ctx.Done():
				logger.Info("Shutting down")
			case err := <-serveErr:
				if err != nil {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown: %w", err)
			}
			<-loopErr

			if cfg.Simulation.AutosaveEvery > 0 {
				if _, err := rt.engine.Save(shutdownCtx, cfg.Simulation.SnapshotName); err != nil {
					logger.Error("Final save failed", "error", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&restore, "restore", "", "snapshot to resume from")
	return cmd
}
