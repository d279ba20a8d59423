package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/attrition-backend/internal/config"
	"github.com/yungbote/attrition-backend/internal/data/cache"
	"github.com/yungbote/attrition-backend/internal/data/db"
	"github.com/yungbote/attrition-backend/internal/observability"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
	"github.com/yungbote/attrition-backend/internal/prediction/artifact"
	"github.com/yungbote/attrition-backend/internal/prediction/features"
	"github.com/yungbote/attrition-backend/internal/prediction/predictor"
)

type App struct {
	Log       *logger.Logger
	Config    *config.Config
	DB        *gorm.DB
	Artifact  *artifact.Handle
	Predictor *predictor.Predictor
	Repos     Repos
	Services  Services

	cache        cache.SummaryCache
	server       *http.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Telemetry.Version,
	})

	opener := artifact.SourceOpener{ClientOptions: artifact.GCSClientOptions(cfg.Artifact.GCSEndpoint)}
	handle := artifact.NewLoader(log, opener).Load(ctx, cfg.Artifact.Path)
	if !handle.Available() && cfg.Artifact.Required {
		abort(log, otelShutdown, cfg.HTTP.ShutdownTimeout.Duration)
		return nil, fmt.Errorf("load artifact %s: %w", cfg.Artifact.Path, handle.Err())
	}

	pred := predictor.New(log, handle, features.Mode(cfg.Artifact.Encoding),
		predictor.WithParallelChunk(cfg.Artifact.ParallelChunk),
	)

	theDB, err := db.Open(cfg.Database, log)
	if err != nil {
		abort(log, otelShutdown, cfg.HTTP.ShutdownTimeout.Duration)
		return nil, fmt.Errorf("init database: %w", err)
	}

	summaryCache, err := cache.NewSummaryCache(log, cfg.Redis)
	if err != nil {
		// Reports still work uncached.
		log.Warn("summary cache disabled", "error", err)
		summaryCache = cache.Noop{}
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, pred, reposet, summaryCache)
	handlerset := wireHandlers(handle, pred, serviceset)
	srv := wireServer(cfg, log, handlerset)

	return &App{
		Log:          log,
		Config:       cfg,
		DB:           theDB,
		Artifact:     handle,
		Predictor:    pred,
		Repos:        reposet,
		Services:     serviceset,
		cache:        summaryCache,
		server:       srv,
		otelShutdown: otelShutdown,
	}, nil
}

// abort releases what New set up before a startup error.
func abort(log *logger.Logger, otelShutdown func(context.Context) error, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := otelShutdown(ctx); err != nil {
		log.Warn("otel shutdown failed", "error", err)
	}
	log.Sync()
}

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	a.Log.Info("HTTP server listening",
		"addr", a.server.Addr,
		"artifact", a.Artifact.Info().Status,
		"encoding", a.Config.Artifact.Encoding,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
