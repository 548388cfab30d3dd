package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/catalog-agent/internal/config"
	"github.com/jonathan/catalog-agent/internal/server"
	"github.com/jonathan/catalog-agent/internal/server/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	servePort int
	serveSeed bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the catalog, analysis jobs and runtime configuration.

Storage is PostgreSQL when DATABASE_URL is set and in-memory otherwise. Admin routes
require a bearer token when JWT_SECRET is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "Load the demo catalog when it is empty")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{
		Progress:   cmd.OutOrStdout(),
		Seed:       serveSeed,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}
	// Start drains the orchestrator; only storage and clients remain to release
	defer func() {
		if err := a.close(); err != nil {
			a.logger.Warn("failed to release resources", "error", err)
		}
	}()

	srv, err := newServer(a)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

// newServer builds the HTTP server over a wired app.
func newServer(a *app) (*server.Server, error) {
	jwtService, err := jwtServiceFromEnv()
	if err != nil {
		return nil, err
	}
	if jwtService == nil {
		a.logger.Warn("JWT_SECRET not set, admin routes are unauthenticated")
	}

	return server.New(server.Config{Port: a.cfg.Port}, server.Deps{
		Orchestrator: a.orch,
		Catalog:      a.catalog,
		Registry:     a.registry,
		JWT:          jwtService,
		RateLimiter:  ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Metrics:      a.metrics,
		Gatherer:     a.gatherer,
		Logger:       a.logger,
	})
}

// jwtServiceFromEnv returns nil when no secret is configured.
func jwtServiceFromEnv() (*server.JWTService, error) {
	jwtCfg, err := config.NewJWTConfig()
	if errors.Is(err, config.ErrJWTSecretMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid JWT configuration: %w", err)
	}
	return server.NewJWTService(jwtCfg), nil
}
