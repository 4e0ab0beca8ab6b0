package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"montra/internal/middleware/identity"
)

func tokenCmd() *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local development",
		Long: `Sign an HS256 token with AUTH_JWT_SECRET for the given user. Production
tokens come from the external authentication service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appCfg.AuthJWTSecret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not set")
			}
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive user id")
			}
			now := time.Now()
			tok, err := identity.IssueToken([]byte(appCfg.AuthJWTSecret), userID, jwt.RegisteredClaims{
				Issuer:    appCfg.AuthJWTIssuer,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id carried by the token (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
