package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"sopflow/internal/export"
	"sopflow/internal/flowstore"
	"sopflow/internal/gateway/config"
	"sopflow/internal/gateway/handler"
	"sopflow/internal/gateway/server"
	"sopflow/internal/gateway/session"
	"sopflow/internal/llm"
	"sopflow/internal/settings"
)

type App struct {
	server   *server.Server
	settings *settings.Manager
	router   *llm.Router
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	// Dependencies
	mgr, err := settings.NewManager(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	router := NewRouter(cfg.LLM, nil)
	exporter, err := export.New(export.Config{
		Dir: cfg.Export.Dir,
		S3: export.S3Config{
			Endpoint:  cfg.Export.Endpoint,
			Region:    cfg.Export.Region,
			AccessKey: cfg.Export.AccessKey,
			SecretKey: cfg.Export.SecretKey,
			Bucket:    cfg.Export.Bucket,
			UseSSL:    cfg.Export.UseSSL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init exporter: %w", err)
	}
	sessions, err := session.New(cfg.SessionCacheSize, func() *flowstore.Store {
		return flowstore.New(router, mgr)
	})
	if err != nil {
		return nil, err
	}

	// Routing & Server
	svc := handler.NewService(sessions, mgr, exporter)
	srv := server.New(cfg.Port, svc.Routes(cfg.AllowedOrigins))

	log.Printf("settings: %s (provider %s, offline %t)", mgr.Path(), mgr.Current().Provider, cfg.LLM.Offline)
	return &App{server: srv, settings: mgr, router: router}, nil
}

// NewRouter builds the provider router with the middleware chain c asks
// for. Offline routers answer locally and skip the network client.
func NewRouter(c config.LLMConfig, logger *log.Logger) *llm.Router {
	mws := Middlewares(c, logger)
	if c.Offline {
		return llm.NewOfflineRouter(mws...)
	}
	return llm.NewDefaultRouter(&http.Client{}, mws...)
}

// Middlewares orders the chain as logging, timeout, retry, rate limit, so a
// single timeout bounds all attempts of one call.
func Middlewares(c config.LLMConfig, logger *log.Logger) []llm.Middleware {
	mws := []llm.Middleware{llm.WithLogging(logger), llm.WithTimeout(c.Timeout)}
	if c.Retries > 0 {
		mws = append(mws, llm.Retry(c.Retries+1, time.Second))
	}
	if c.RPS > 0 {
		mws = append(mws, llm.RateLimit(c.RPS, c.Burst))
	}
	return mws
}

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops the HTTP server and then releases the provider router.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	return errors.Join(err, a.router.Close())
}
