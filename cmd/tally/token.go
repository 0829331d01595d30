package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/tally/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the REST and MCP endpoints",
	Long:  `Sign an HS256 token with auth.jwt_secret (or TALLY_AUTH_JWT_SECRET) for use as "Authorization: Bearer <token>".`,
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "", "Token subject (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default auth.token_expiry)")
}

func runToken(cmd *cobra.Command, args []string) error {
	config, _, err := loadConfig()
	if err != nil {
		return err
	}
	if !config.Auth.Enabled() {
		return errors.New("auth.jwt_secret is not configured")
	}

	ttl := tokenTTL
	if ttl <= 0 {
		ttl = config.Auth.GetTokenExpiry()
	}

	token, err := server.SignToken(config.Auth.JWTSecret, tokenSubject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
