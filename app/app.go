// Package app assembles the lifescribe packages for the command line: it
// loads the config, builds the provider managers, the pipeline, the
// database, the ingest service and the API server, and runs them under one
// bootstrap lifecycle.
package app

import (
	"context"

	"github.com/kbukum/lifescribe/api"
	"github.com/kbukum/lifescribe/artifacts"
	"github.com/kbukum/lifescribe/bootstrap"
	"github.com/kbukum/lifescribe/database"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/ingest"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/observability"
	"github.com/kbukum/lifescribe/pipeline"
	"github.com/kbukum/lifescribe/storage"
	"github.com/kbukum/lifescribe/transcripts"

	_ "github.com/kbukum/lifescribe/storage/local"
	_ "github.com/kbukum/lifescribe/storage/s3"
)

// App is one lifescribe process.
type App struct {
	*bootstrap.App[*Config]

	Metrics *observability.Metrics

	db *database.Component
}

// New creates the application. Telemetry exporters start with it and are
// flushed on shutdown.
func New(cfg *Config, opts ...bootstrap.Option) (*App, error) {
	base, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	metrics, err := observability.NewDefaultMetrics()
	if err != nil {
		return nil, err
	}
	a := &App{App: base, Metrics: metrics}

	var shutdown func(context.Context) error
	base.OnStart(func(ctx context.Context) error {
		s, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Environment)
		if err != nil {
			return err
		}
		shutdown = s
		return nil
	})
	base.OnStop(func(ctx context.Context) error {
		if shutdown == nil {
			return nil
		}
		return shutdown(ctx)
	})
	return a, nil
}

// UseDatabase registers the database component. The schema is migrated
// when the application starts.
func (a *App) UseDatabase() error {
	if a.db != nil {
		return nil
	}
	a.db = database.NewComponent(a.Cfg.Database, logger.Get("database")).
		WithMigrations(transcripts.Migrations, transcripts.MigrationsDir, transcripts.Models()...)
	return a.RegisterComponent(a.db)
}

// Store returns the transcript store. It needs UseDatabase and a started
// application.
func (a *App) Store() (*transcripts.Store, error) {
	if a.db == nil || a.db.DB() == nil {
		return nil, errors.ServiceUnavailable("database")
	}
	return transcripts.NewStore(a.db.DB()), nil
}

// Ingester returns the ingest service over the transcript store.
func (a *App) Ingester() (*ingest.Service, error) {
	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	return ingest.NewService(store, a.Cfg.Ingest), nil
}

// Pipeline builds the alignment pipeline from the configured backends.
func (a *App) Pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	tm, err := NewTranscription(a.Cfg.Transcription)
	if err != nil {
		return nil, err
	}
	dm, err := NewDiarization(a.Cfg.Diarization)
	if err != nil {
		return nil, err
	}
	sink, err := a.sink(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.New(transcriber{tm}, diarizer{dm},
		pipeline.WithSink(sink),
		pipeline.WithMetrics(a.Metrics),
		pipeline.WithLogger(logger.Get("pipeline")),
	), nil
}

func (a *App) sink(ctx context.Context) (artifacts.Sink, error) {
	if !a.Cfg.Artifacts.Enabled {
		return artifacts.Nop{}, nil
	}
	store, err := storage.New(ctx, a.Cfg.Storage, logger.Get("storage"))
	if err != nil {
		return nil, err
	}
	return artifacts.NewStorageSink(store), nil
}

// Server builds the transcript API server and registers it. Call
// UseDatabase first so the database starts before the server.
func (a *App) Server() (*api.Server, error) {
	if a.db == nil {
		return nil, errors.ServiceUnavailable("database")
	}
	srv, err := api.New(a.Cfg.API, &dbStore{db: a.db}, logger.Get("api"),
		api.WithMetrics(a.Metrics),
		api.WithHealth(a.Components.HealthAll),
	)
	if err != nil {
		return nil, err
	}
	if err := a.RegisterComponent(srv); err != nil {
		return nil, err
	}
	return srv, nil
}
