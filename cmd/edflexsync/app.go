package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"edflex-sync/internal/config"
	"edflex-sync/internal/contentstore"
	"edflex-sync/internal/db"
	"edflex-sync/internal/logger"
	"edflex-sync/internal/metrics"
	"edflex-sync/internal/providers/edflex"
	"edflex-sync/internal/refresh"
	gormrepository "edflex-sync/internal/repository/gorm"
	"edflex-sync/internal/sync"
)

// app holds the wiring shared by every subcommand.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	db       *db.DB
	store    *gormrepository.Store
	pool     *edflex.Pool
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newApp(flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath, flags.envOnly)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	conn, err := db.Open(cfg.DB)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open db: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(conn); err != nil {
			_ = db.Close(conn)
			_ = log.Sync()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       conn,
		store:    gormrepository.New(conn.Gorm),
		pool:     edflex.NewPool(cfg.API, log),
		registry: registry,
		metrics:  metrics.New(registry),
	}, nil
}

func (a *app) Close() {
	if err := db.Close(a.db); err != nil {
		a.log.Warn("close db", zap.Error(err))
	}
	_ = a.log.Sync()
}

func (a *app) sweeper() *sync.Sweeper {
	return &sync.Sweeper{
		Engine: &sync.Engine{
			Store:         a.store,
			Logger:        a.log,
			DetailWorkers: a.cfg.API.DetailWorkers,
		},
		Sources: a.pool,
		Metrics: a.metrics,
		Logger:  a.log,
	}
}

func (a *app) refresher() *refresh.Refresher {
	content := contentstore.New(a.db.Gorm)
	return &refresh.Refresher{
		Courses:    content,
		Identities: content,
		Versioning: content,
		Clients:    refresh.ConfigClients{Config: a.cfg, Sources: a.pool},
		Metrics:    a.metrics,
		Logger:     a.log,
		Workers:    a.cfg.Refresh.Workers,
		Depth:      a.cfg.Refresh.Depth,
	}
}

func (a *app) ready(ctx context.Context) error {
	return a.db.SQL.PingContext(ctx)
}
