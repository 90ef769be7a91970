package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docnum/internal/domain/auth"
)

func newTokenCmd(opts *globalOptions) *cobra.Command {
	var (
		userID string
		email  string
		roles  []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API (signed with JWT_SECRET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
			if ttl > 0 {
				jwtCfg.AccessTokenTTL = ttl
			}
			token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(userID, email, roles)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "E-mail claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role claim (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default 1h)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
