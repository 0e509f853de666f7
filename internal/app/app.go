// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/salary-predictor/internal/api"
	"github.com/JakeFAU/salary-predictor/internal/artifact"
	"github.com/JakeFAU/salary-predictor/internal/clock/system"
	"github.com/JakeFAU/salary-predictor/internal/config"
	"github.com/JakeFAU/salary-predictor/internal/events"
	eventsMemory "github.com/JakeFAU/salary-predictor/internal/events/memory"
	eventsPubSub "github.com/JakeFAU/salary-predictor/internal/events/pubsub"
	"github.com/JakeFAU/salary-predictor/internal/history"
	"github.com/JakeFAU/salary-predictor/internal/id/uuid"
	"github.com/JakeFAU/salary-predictor/internal/metrics"
	"github.com/JakeFAU/salary-predictor/internal/model"
	"github.com/JakeFAU/salary-predictor/internal/predict"
	"github.com/JakeFAU/salary-predictor/internal/telemetry"
)

// App holds the shared, long-lived services of the salary predictor. It is
// built once at startup and closed on shutdown.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Artifact     *model.Artifact
	Preprocessor *model.Preprocessor
	Predictor    *predict.Predictor
	History      history.Store
	Events       events.Publisher
	Tracer       *sdktrace.TracerProvider

	gcs *storage.Client
}

// NewApp loads the model and initializes every configured backend. It fails
// fast: a model that cannot be loaded or a backend that cannot be reached
// aborts startup.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	logger.Info("initializing application services")

	// 1. Model artifacts.
	source, err := a.artifactSource(ctx)
	if err != nil {
		return nil, a.abort(fmt.Errorf("failed to initialize artifact source: %w", err))
	}
	loader := artifact.NewLoader(source, artifact.Config{
		ModelPath:        cfg.Artifacts.ModelPath,
		PreprocessorPath: cfg.Artifacts.PreprocessorPath,
	}, logger.Named("artifact"))
	a.Artifact, a.Preprocessor, err = loader.Load(ctx)
	if err != nil {
		return nil, a.abort(err)
	}
	meta := a.Artifact.Metadata()
	metrics.SetModelInfo(meta.ModelName, meta.TrainingDate)

	// 2. Tracing.
	a.Tracer, err = telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: meta.TrainingDate,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, a.abort(fmt.Errorf("failed to initialize tracing: %w", err))
	}

	// 3. Predictor.
	a.Predictor, err = predict.New(a.Artifact, predict.Config{
		CacheSize:        cfg.Predict.CacheSize,
		BatchConcurrency: cfg.Predict.BatchConcurrency,
	}, uuid.New(), logger.Named("predict"))
	if err != nil {
		return nil, a.abort(fmt.Errorf("failed to initialize predictor: %w", err))
	}

	// 4. History store.
	a.History, err = newHistoryStore(ctx, cfg.History, logger)
	if err != nil {
		return nil, a.abort(fmt.Errorf("failed to initialize history: %w", err))
	}

	// 5. Event publisher.
	a.Events, err = newPublisher(ctx, cfg.Events, logger)
	if err != nil {
		return nil, a.abort(fmt.Errorf("failed to initialize events: %w", err))
	}

	logger.Info("application services initialized",
		zap.String("model", meta.ModelName),
		zap.String("history", cfg.History.Backend),
		zap.String("events", cfg.Events.Backend),
	)
	return a, nil
}

func (a *App) artifactSource(ctx context.Context) (artifact.Source, error) {
	switch a.Config.Artifacts.Source {
	case config.SourceLocal:
		a.Logger.Info("using local artifact source", zap.String("dir", a.Config.Artifacts.Dir))
		return artifact.NewLocalSource(a.Config.Artifacts.Dir)
	case config.SourceGCS:
		a.Logger.Info("using GCS artifact source",
			zap.String("bucket", a.Config.Artifacts.GCSBucket),
			zap.String("prefix", a.Config.Artifacts.GCSPrefix),
		)
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.gcs = client
		return artifact.NewGCSSource(client, a.Config.Artifacts.GCSBucket, a.Config.Artifacts.GCSPrefix)
	default:
		return nil, fmt.Errorf("unknown artifact source: %s", a.Config.Artifacts.Source)
	}
}

func newHistoryStore(ctx context.Context, cfg config.HistoryConfig, logger *zap.Logger) (history.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Info("using in-memory prediction history", zap.Int("capacity", cfg.MemoryCapacity))
		return history.NewMemoryStore(cfg.MemoryCapacity), nil
	case config.BackendPostgres:
		logger.Info("connecting to PostgreSQL", zap.String("table", cfg.Table))
		store, err := history.NewPostgresStore(ctx, history.PostgresConfig{
			DSN:      cfg.DSN,
			Table:    cfg.Table,
			MaxConns: cfg.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown history backend: %s", cfg.Backend)
	}
}

func newPublisher(ctx context.Context, cfg config.EventsConfig, logger *zap.Logger) (events.Publisher, error) {
	switch cfg.Backend {
	case config.BackendNone, "":
		logger.Info("prediction events disabled")
		return events.Nop{}, nil
	case config.BackendMemory:
		logger.Info("using in-memory event publisher")
		return eventsMemory.New(), nil
	case config.BackendPubSub:
		logger.Info("connecting to GCP Pub/Sub", zap.String("topic", cfg.Topic))
		client, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		return eventsPubSub.New(client), nil
	default:
		return nil, fmt.Errorf("unknown events backend: %s", cfg.Backend)
	}
}

// Server builds the HTTP API over the App's services.
func (a *App) Server() *api.Server {
	return api.NewServer(api.Deps{
		Model:     a.Artifact,
		Predictor: a.Predictor,
		History:   a.History,
		Events:    a.Events,
		Clock:     system.New(),
		IDs:       uuid.New(),
	}, a.Config, a.Logger.Named("api"))
}

// abort releases whatever was initialized before a startup failure.
func (a *App) abort(err error) error {
	if cerr := a.Close(context.Background()); cerr != nil {
		a.Logger.Warn("cleanup after failed startup", zap.Error(cerr))
	}
	return err
}

// Close shuts down all services in the App container.
func (a *App) Close(ctx context.Context) error {
	a.Logger.Info("shutting down application services")
	var errs []error
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	if a.History != nil {
		a.History.Close()
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage client: %w", err))
		}
	}
	if a.Tracer != nil {
		if err := a.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	return errors.Join(errs...)
}
