package main

import (
	"fmt"
	"log/slog"

	"astral-server/internal/catalog"
	"astral-server/internal/game"
	"astral-server/internal/shared/config"

	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [content-dir]",
		Short: "Load content and build the universe without starting anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GlobalConfig
			dir := cfg.Simulation.ContentDir
			if len(args) == 1 {
				dir = args[0]
			}

			cat, err := catalog.Load(dir, slog.Default())
			if err != nil {
				return err
			}
			engine, err := game.New(cat, nil, engineOptions(cfg), slog.Default())
			if err != nil {
				return err
			}

			status := engine.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records, %d systems, %d factions, %d entities, %d mission templates\n",
				dir, cat.Len(), status.Systems, status.Factions, status.Entities, len(engine.Templates()))
			return nil
		},
	}
}
