package main

import (
	"fmt"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/api"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the status API",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := setup()

			auth, err := api.NewAuthenticator(cfg.Server.JWTSecret)
			if err != nil {
				logger.WithError(err).Fatal("server.jwt_secret must be set to issue tokens")
			}
			token, err := auth.Issue(subject, ttl)
			if err != nil {
				logger.WithError(err).Fatal("Failed to issue token")
			}
			fmt.Println(token)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "dashboard", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
