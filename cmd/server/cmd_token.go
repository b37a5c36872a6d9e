package main

import (
	"fmt"

	"astral-server/internal/auth"
	"astral-server/internal/shared/config"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GlobalConfig
			tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)
			if err != nil {
				return err
			}
			token, err := tokens.Generate(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "token role (admin or observer)")
	return cmd
}
