// Package server runs the long-lived serve mode: the HTTP API and, when
// enabled, the Kafka analysis request consumer.
package server

import (
	"context"
	"fmt"
	"time"

	"RelVal/pkg/config"
	xhttp "RelVal/pkg/http"
	pkgkafka "RelVal/pkg/kafka"
	applogger "RelVal/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
}

// New creates an App. consumer and kh may be nil when request consumption is disabled.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, kh pkgkafka.MessageHandler) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, l: l, httpServer: httpServer, consumer: consumer, kh: kh}
}

// Run starts every component and blocks until ctx is done or the HTTP
// listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("relval serving",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("data_source", a.cfg.Data.Source),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case err := <-a.httpServer.Errors():
		runErr = fmt.Errorf("http server: %w", err)
	}
	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops intake first: HTTP, then the consumer.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.l.Info("shutdown complete")
	return firstErr
}
