package main

import (
	"fmt"

	"github.com/jonathan/catalog-agent/internal/config"
	"github.com/spf13/cobra"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin bearer token",
	Long:  "Signs an admin token with JWT_SECRET. Pass it to admin routes as 'Authorization: Bearer <token>'.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "admin", "Subject recorded in the token")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtService, err := jwtServiceFromEnv()
	if err != nil {
		return err
	}
	if jwtService == nil {
		return config.ErrJWTSecretMissing
	}

	token, err := jwtService.GenerateToken(tokenSubject)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
