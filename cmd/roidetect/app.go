package main

import (
	"context"

	"github.com/nvr-ai/roi-detect/annotate"
	"github.com/nvr-ai/roi-detect/config"
	"github.com/nvr-ai/roi-detect/detector"
	"github.com/nvr-ai/roi-detect/inference"
	"github.com/nvr-ai/roi-detect/logging"
	"github.com/nvr-ai/roi-detect/metrics"
	"github.com/nvr-ai/roi-detect/notify"
	"github.com/nvr-ai/roi-detect/profiler"
	"github.com/nvr-ai/roi-detect/records"
	"github.com/nvr-ai/roi-detect/records/postgres"
	"github.com/nvr-ai/roi-detect/records/sqlite"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// pipeline holds the loaded configuration, engine and detector shared by the commands.
type pipeline struct {
	cfg      config.Config
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	profiler *profiler.Profiler
	engine   inference.Engine
	detector *detector.Detector
}

func setup(c *cli.Context) (*pipeline, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	prof, err := profiler.New(profiler.Options{Registerer: m.Registry, Namespace: metrics.Namespace})
	if err != nil {
		return nil, errors.Wrap(err, "creating profiler")
	}

	classes, err := cfg.Classes()
	if err != nil {
		return nil, err
	}

	engine, err := inference.New(cfg.Engine(), classes.Len(), logger.Named("inference"))
	if err != nil {
		return nil, err
	}

	det, err := detector.New(detector.Args{
		Engine:     engine,
		Preprocess: cfg.Preprocess(),
		Config:     cfg.Thresholds,
		Classes:    classes,
		Style:      annotate.DefaultStyle(),
		Profiler:   prof,
		Logger:     logger.Named("detector"),
	})
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	logger.Infow("detector ready",
		"model", cfg.Model.Path,
		"backend", cfg.Engine().Backend,
		"provider", cfg.Model.Provider.Backend,
		"policy", cfg.Preprocess().Policy,
		"classes", classes.Names(),
	)

	return &pipeline{cfg: cfg, logger: logger, metrics: m, profiler: prof, engine: engine, detector: det}, nil
}

func (r *pipeline) Close() error {
	err := r.engine.Close()
	_ = r.logger.Sync()
	return err
}

// openStore opens the configured records backend; a nil store means the routes are disabled.
func openStore(ctx context.Context, cfg config.Store, hub *notify.Hub, logger *zap.SugaredLogger) (records.Store, error) {
	switch cfg.Driver {
	case config.StorePostgres:
		return postgres.Open(ctx, cfg.DSN, cfg.Channel, hub, logger.Named("postgres"))
	case config.StoreSQLite:
		return sqlite.Open(cfg.DSN, hub, logger.Named("sqlite"))
	default:
		return nil, nil
	}
}
