package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"astral-server/internal/shared/config"

	"github.com/spf13/cobra"
)

func simulateCmd() *cobra.Command {
	var (
		ticks int
		save  string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a fixed number of ticks headless and print the final status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticks <= 0 {
				return fmt.Errorf("--ticks must be positive")
			}
			ctx := cmd.Context()
			logger := slog.With("component", "simulate")

			rt, err := bootstrap(ctx, config.GlobalConfig)
			if err != nil {
				return err
			}
			defer rt.Close()

			for i := 0; i < ticks; i++ {
				if ctx.Err() != nil {
					break
				}
				report := rt.engine.Step(ctx)
				if len(report.Failures) > 0 {
					logger.Warn("Tick had failing stages", "tick", report.Tick, "stages", report.Failures)
				}
			}

			if save != "" {
				info, err := rt.engine.Save(ctx, save)
				if err != nil {
					return err
				}
				logger.Info("Snapshot saved", "name", info.Name, "tick", info.Tick)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rt.engine.Status())
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 100, "number of ticks to run")
	cmd.Flags().StringVar(&save, "save", "", "snapshot name to save after the run")
	return cmd
}
