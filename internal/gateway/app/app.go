package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"rationalist/internal/gateway/config"
	"rationalist/internal/gateway/handler"
	"rationalist/internal/gateway/handler/rpc"
	"rationalist/internal/gateway/server"
	"rationalist/internal/gateway/service/session"
	"rationalist/internal/generation"
)

type App struct {
	server   *server.Server
	handler  http.Handler
	sessions *session.Service
	closers  []io.Closer
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(context.Background(), cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, logCloser := setupLogging(cfg.LogFile)
	var closers []io.Closer
	if logCloser != nil {
		closers = append(closers, logCloser)
	}

	// Dependencies
	client, err := llmClientFactory(ctx, cfg.LLM, logger)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	gw := generation.NewLLMGateway(client, generation.Options{
		Retries: cfg.LLM.Retries,
		Backoff: cfg.LLM.RetryDelay,
	})
	closers = append(closers, gw)

	store, storeClosers, err := initReportStore(ctx, cfg, logger)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	closers = append(closers, storeClosers...)

	sessions, err := session.New(gw, store, session.Config{
		MaxSessions: cfg.Session.MaxSessions,
		Logger:      logger,
	})
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}

	sessionHandler := rpc.NewSessionHandler(sessions)
	reportHandler := rpc.NewReportHandler(store)
	sessionWSHandler := rpc.NewSessionWSHandler(sessions)
	traceHandler := handler.NewTraceHandler(sessions, logger)

	// Routing & Server
	mux := server.NewMux(sessionHandler, reportHandler, sessionWSHandler, traceHandler, logger)
	srv := server.New(cfg.Port, mux)

	return &App{
		server:   srv,
		handler:  mux,
		sessions: sessions,
		closers:  closers,
	}, nil
}

// Handler exposes the routed handler without the network listener.
func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.sessions.CloseAll()
	closeAll(a.closers)
	return err
}

// closeAll releases resources in reverse acquisition order.
func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
