package app

import (
	"context"
	"fmt"

	"github.com/yungbote/autodoc-backend/internal/config"
	httpx "github.com/yungbote/autodoc-backend/internal/http"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/pipeline"
	"github.com/yungbote/autodoc-backend/internal/observability"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      config.Config
	Clients  Clients
	Services Services
	Pipeline *pipeline.Pipeline

	otelShutdown func(context.Context) error
}

var initOTel = observability.InitOTel

// New builds every backend once; they are shared by all runs.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log, err := logger.NewWithLevel(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown := initOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     cfg.Otel.Headers,
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})

	abort := func(clients Clients, err error) (*App, error) {
		clients.Close(log)
		if serr := shutdown(context.Background()); serr != nil {
			log.Warn("otel shutdown failed", "error", serr)
		}
		log.Sync()
		return nil, err
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		return abort(Clients{}, err)
	}
	serviceset, err := wireServices(ctx, log, cfg, clients)
	if err != nil {
		return abort(clients, err)
	}
	p, err := wirePipeline(log, cfg, serviceset)
	if err != nil {
		return abort(clients, err)
	}
	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Services:     serviceset,
		Pipeline:     p,
		otelShutdown: shutdown,
	}, nil
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Pipeline == nil {
		return fmt.Errorf("app not initialized")
	}
	srv := httpx.NewServer(wireRouter(a.Log, a.Cfg, wireHandlers(a.Log, a.Cfg, a.Pipeline, a.Clients)))
	a.Log.Info("http server listening", "addr", a.Cfg.HTTP.Addr)
	return srv.Run(ctx, a.Cfg.HTTP.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close(a.Log)
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
