// Package main provides the entry point for the catalog agent server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "catalog_agent",
	Short: "Catalog Agent HTTP API server and CLI",
	Long:  "Catalog Agent generates reviews, SEO metadata, marketing assets and video scripts for affiliate catalog products by running a failover-protected multi-agent pipeline.",
}

var rootConfigPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to a JSON or YAML config file (environment variables override it)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
