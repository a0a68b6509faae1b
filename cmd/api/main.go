package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bahjat/page-agent/backend/internal/analyzer"
	"github.com/Bahjat/page-agent/backend/internal/app"
	"github.com/Bahjat/page-agent/backend/internal/platform/config"
	"github.com/Bahjat/page-agent/backend/internal/platform/logger"
	"github.com/Bahjat/page-agent/backend/internal/platform/metrics"
	"github.com/Bahjat/page-agent/backend/internal/platform/middleware"
	"github.com/Bahjat/page-agent/backend/web"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	svc := app.NewService(cfg, log, m)
	transport := analyzer.NewTransport(svc, cfg.RequestTimeout(), log)

	mux := http.NewServeMux()
	transport.RegisterRoutes(mux)
	mux.Handle("GET /metrics", m.Handler())
	mux.Handle("GET /", web.Handler())

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging(log),
		middleware.CORS(cfg.AllowedOrigins()),
		middleware.Metrics(m),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started",
			"addr", srv.Addr,
			"browser_mode", cfg.BrowserMode,
			"model", cfg.Model,
			"max_agent_steps", cfg.MaxAgentSteps,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}
}
