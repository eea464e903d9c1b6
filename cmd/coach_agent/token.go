package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/fitness-coach/internal/config"
	"github.com/jonathan/fitness-coach/internal/server"
)

var (
	tokenConfigPath string
	tokenUserID     string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token",
	Long:  `Sign a token for --user-id with the configured auth.jwt_secret. Intended for local testing of the streaming endpoints.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenConfigPath, "config", "", "Path to a config file or directory")
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "User ID to put in the token (required)")
	_ = tokenCmd.MarkFlagRequired("user-id")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(tokenConfigPath)
	if err != nil {
		return err
	}
	token, err := mintToken(cfg, tokenUserID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func mintToken(cfg *config.Config, userID string) (string, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", fmt.Errorf("invalid --user-id: %w", err)
	}
	jwtCfg, err := cfg.JWT()
	if err != nil {
		return "", fmt.Errorf("config error: %w", err)
	}
	if jwtCfg == nil {
		return "", fmt.Errorf("auth.jwt_secret is not configured (set AUTH_JWT_SECRET)")
	}
	return server.NewJWTService(jwtCfg).GenerateToken(uid)
}
