package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"astral-server/internal/shared/config"
	"astral-server/internal/shared/logger"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:           "astral-server",
		Short:         "Dynamic universe simulation server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(); err != nil {
				return err
			}
			logger.Init()
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		simulateCmd(),
		validateCmd(),
		tokenCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
