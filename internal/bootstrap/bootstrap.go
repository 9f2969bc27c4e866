// Package bootstrap assembles the standardization service from a Config.
// Both the chargefix CLI and the API server build their dependency graph
// here so the two front ends behave identically for the same settings.
package bootstrap

import (
	"context"
	"os"

	"github.com/AAriam/rdkit/internal/application/standardize"
	"github.com/AAriam/rdkit/internal/config"
	"github.com/AAriam/rdkit/internal/domain/charge"
	"github.com/AAriam/rdkit/internal/infrastructure/cache"
	"github.com/AAriam/rdkit/internal/infrastructure/database/redis"
	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/prometheus"
	"github.com/AAriam/rdkit/pkg/errors"
)

// catalogs is shared by every App in the process so repeated builds (tests,
// CLI subcommands) compile the catalog once.
var catalogs = charge.NewCatalogCache()

// Options tune what New wires beyond the Config.
type Options struct {
	// Version is reported by the build_info metric.
	Version string
	// Sink receives every charge event in addition to the metrics sink.
	Sink charge.EventSink
}

// Check is a named readiness probe.
type Check struct {
	name  string
	check func(ctx context.Context) error
}

func (c Check) Name() string                    { return c.name }
func (c Check) Check(ctx context.Context) error { return c.check(ctx) }

// App holds the assembled components.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Catalog   *charge.AcidBaseCatalog
	Reionizer *charge.Reionizer
	Uncharger *charge.Uncharger
	Service   standardize.Service

	// Collector and Metrics are nil when metrics are disabled.
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Checks []Check

	closers []func() error
}

// New builds the App. On error every resource opened so far is closed.
func New(cfg *config.Config, logger logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.InvalidParam("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	app := &App{Config: cfg, Logger: logger}
	if err := app.build(cfg, opts); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(cfg *config.Config, opts Options) (err error) {
	logger := a.Logger
	a.Catalog, err = LoadCatalog(cfg.Standardizer.CatalogPath)
	if err != nil {
		return err
	}
	corrections, err := LoadCorrections(cfg.Standardizer.CorrectionsPath)
	if err != nil {
		return err
	}

	var sinks charge.MultiSink
	if cfg.Metrics.Enabled {
		a.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return err
		}
		a.Metrics = prometheus.NewAppMetrics(a.Collector, cfg.Cache.Backend)
		a.Metrics.CatalogPairs.WithLabelValues().Set(float64(a.Catalog.Len()))
		a.Metrics.BuildInfo.WithLabelValues(opts.Version).Set(1)
		sinks = append(sinks, prometheus.NewChargeEventSink(a.Metrics))
	}
	if opts.Sink != nil {
		sinks = append(sinks, opts.Sink)
	}

	a.Reionizer, err = charge.NewReionizer(a.Catalog, charge.WithChargeCorrections(corrections))
	if err != nil {
		return err
	}
	a.Uncharger = charge.NewUncharger(
		charge.WithForceFullNeutralization(cfg.Standardizer.ForceFullNeutralization),
		charge.WithCanonicalOrdering(cfg.Standardizer.Canonical()),
	)

	ops := make([]standardize.Operation, 0, len(cfg.Standardizer.Operations))
	for _, name := range cfg.Standardizer.Operations {
		op, perr := standardize.ParseOperation(name)
		if perr != nil {
			return perr
		}
		ops = append(ops, op)
	}

	svcOpts := []standardize.Option{
		standardize.WithConcurrency(cfg.Standardizer.Concurrency),
		standardize.WithDefaultOperations(ops),
	}
	if len(sinks) > 0 {
		svcOpts = append(svcOpts, standardize.WithEventSink(sinks))
	}
	if a.Metrics != nil {
		svcOpts = append(svcOpts, standardize.WithMetrics(a.Metrics))
	}
	resultCache, err := a.openCache(cfg)
	if err != nil {
		return err
	}
	if resultCache != nil {
		svcOpts = append(svcOpts, standardize.WithResultCache(resultCache, cfg.Cache.TTL))
	}

	a.Service, err = standardize.NewService(a.Reionizer, a.Uncharger, logger, svcOpts...)
	if err != nil {
		return err
	}

	logger.Info("standardizer ready",
		logging.Int("catalog_pairs", a.Catalog.Len()),
		logging.Int("charge_corrections", len(corrections)),
		logging.Bool("force_full_neutralization", a.Uncharger.ForceFullNeutralization()),
		logging.Bool("canonical_ordering", a.Uncharger.CanonicalOrdering()),
		logging.String("cache", cfg.Cache.Backend))
	return nil
}

func (a *App) openCache(cfg *config.Config) (standardize.ResultCache, error) {
	switch cfg.Cache.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		mem := cache.NewMemory(
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
			cache.WithDefaultTTL(cfg.Cache.TTL),
		)
		a.Checks = append(a.Checks, Check{name: "cache", check: mem.Ping})
		return mem, nil
	case "redis":
		client, err := redis.NewClient(redis.RedisConfig{
			Mode:         cfg.Redis.Mode,
			Addr:         cfg.Redis.Addr,
			Addrs:        cfg.Redis.Addrs,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			TLSEnabled:   cfg.Redis.TLSEnabled,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		rc := redis.NewCache(client, a.Logger,
			redis.WithPrefix(cfg.Cache.Prefix),
			redis.WithDefaultTTL(cfg.Cache.TTL),
		)
		a.Checks = append(a.Checks, Check{name: "redis", check: rc.Ping})
		return rc, nil
	default:
		return nil, errors.InvalidParam("bootstrap: unknown cache backend").WithDetail(cfg.Cache.Backend)
	}
}

// Close releases external connections. It is safe to call more than once.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// LoadCatalog returns the catalog at path, or the built-in one when path
// is empty. Loaded catalogs are shared process-wide.
func LoadCatalog(path string) (*charge.AcidBaseCatalog, error) {
	if path == "" {
		return catalogs.Default()
	}
	return catalogs.FromFile(path)
}

// LoadCorrections reads a YAML correction list from path, or returns the
// built-in rules when path is empty.
func LoadCorrections(path string) ([]charge.ChargeCorrection, error) {
	if path == "" {
		return charge.DefaultChargeCorrections(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorrectionLoadFailed, "open charge corrections").WithDetail(path)
	}
	defer f.Close()
	return charge.LoadChargeCorrections(f)
}
