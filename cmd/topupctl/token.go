package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cryptotopup/internal/auth"
	"cryptotopup/internal/config"
)

func tokenCmd() *cobra.Command {
	var (
		userID uint
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return fmt.Errorf("--user is required")
			}
			cfg := config.Load()
			token, err := auth.NewJWTService(cfg.JWTSecret).GenerateToken(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().UintVar(&userID, "user", 0, "User ID the token is issued for")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenExpiry, "Token lifetime")

	return cmd
}
