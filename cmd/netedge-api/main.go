package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/netedge/internal/api"
	"github.com/edvin/netedge/internal/config"
	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/db"
	"github.com/edvin/netedge/internal/edge"
	"github.com/edvin/netedge/internal/logging"
	"github.com/edvin/netedge/internal/metrics"
	"github.com/edvin/netedge/internal/store"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-api-key" {
		createAPIKey(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPool(prometheus.DefaultRegisterer, pool)

	edgeSync, err := newEdgeSync(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure edge client")
	}

	services := core.NewServices(pool, store.New(pool), edgeSync)
	srv := api.NewServer(logger, services)

	httpServer := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Edge.Timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	metricsServer := metrics.NewServer(cfg.MetricsListenAddr, pool.Ping)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		return serve(httpServer)
	})
	g.Go(func() error {
		logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
		return serve(metricsServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(httpServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func serve(s *http.Server) error {
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", s.Addr, err)
	}
	return nil
}

// newEdgeSync returns the device syncer, or a no-op when no edge is
// configured so the API can run against the database alone.
func newEdgeSync(cfg *config.Config, logger zerolog.Logger) (core.EdgeSync, error) {
	if !cfg.EdgeEnabled() {
		logger.Warn().Msg("EDGE_URL not set; changes will not be pushed to a device")
		return core.NoopEdge{}, nil
	}
	tlsConfig, err := cfg.EdgeTLS()
	if err != nil {
		return nil, err
	}
	client := edge.NewClient(edge.ClientConfig{
		BaseURL:  cfg.Edge.URL,
		EdgeID:   cfg.Edge.ID,
		Username: cfg.Edge.Username,
		Password: cfg.Edge.Password,
		Timeout:  cfg.Edge.Timeout,
		TLS:      tlsConfig,
	})
	logger.Info().Str("edge_url", cfg.Edge.URL).Str("edge_id", cfg.Edge.ID).Msg("edge sync enabled")
	return edge.NewSyncer(client), nil
}

func createAPIKey(args []string) {
	fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
	name := fs.String("name", "", "Name for the API key (required)")
	tenant := fs.String("tenant", "", "Tenant the key acts as (required)")
	admin := fs.Bool("admin", false, "Allow the key to act on behalf of any tenant")
	fs.Parse(args)

	if *name == "" || *tenant == "" {
		fmt.Fprintln(os.Stderr, "error: --name and --tenant are required")
		fmt.Fprintln(os.Stderr, "usage: netedge-api create-api-key --name <name> --tenant <tenant> [--admin]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	key, rawKey, err := core.NewAPIKeyService(pool).Create(ctx, *name, *tenant, *admin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key created.\n\n")
	fmt.Printf("  Name:   %s\n", key.Name)
	fmt.Printf("  ID:     %s\n", key.ID)
	fmt.Printf("  Tenant: %s\n", key.TenantID)
	fmt.Printf("  Admin:  %t\n", key.IsAdmin)
	fmt.Printf("  Key:    %s\n\n", rawKey)
	fmt.Printf("Save this key; it will not be shown again.\n")
}
