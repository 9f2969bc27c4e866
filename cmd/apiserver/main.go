// Command apiserver serves the charge standardizer over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AAriam/rdkit/internal/bootstrap"
	"github.com/AAriam/rdkit/internal/config"
	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
	httpserver "github.com/AAriam/rdkit/internal/interfaces/http"
	"github.com/AAriam/rdkit/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (env only when empty)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	logger.Info("starting chargefix API server",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr()),
		logging.String("cache", cfg.Cache.Backend),
	)

	app, err := bootstrap.New(cfg, logger, bootstrap.Options{Version: version})
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	checkers := make([]handlers.HealthChecker, len(app.Checks))
	for i, c := range app.Checks {
		checkers[i] = c
	}

	routerCfg := httpserver.RouterConfig{
		StandardizeHandler: handlers.NewStandardizeHandler(app.Service, logger,
			handlers.WithLimits(cfg.Server.MaxBodySize, cfg.Server.MaxBatchSize),
			handlers.WithBatchMetrics(app.Metrics)),
		HealthHandler: handlers.NewHealthHandler(version, app.Catalog.Len(), checkers...),
		Logger:        logger,
		Metrics:       app.Metrics,
		MetricsPath:   cfg.Metrics.Path,
	}
	if app.Collector != nil {
		routerCfg.MetricsCollector = app.Collector
	}
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("received signal", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-errCh
}
