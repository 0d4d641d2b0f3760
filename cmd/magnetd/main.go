// MAGNET daemon - parametric design engine server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magnet-design/magnet-core/internal/config"
	"github.com/magnet-design/magnet-core/internal/httpapi"
	"github.com/magnet-design/magnet-core/internal/runtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rt, err := runtime.New(ctx, cfg, runtime.AlwaysApprove, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start runtime: %v\n", err)
		os.Exit(1)
	}

	rt.Logger.Info("starting magnetd",
		"version", "0.1.0",
		"port", cfg.Server.Port,
		"tracing_enabled", cfg.Tracing.Enabled,
	)

	router := httpapi.NewRouter(rt)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		rt.Logger.Info("HTTP server listening", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			rt.Logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		rt.Logger.Info("shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			rt.Logger.Error("graceful shutdown failed", "error", err)
			_ = server.Close()
		}
		if err := rt.Close(shutdownCtx); err != nil {
			rt.Logger.Error("runtime shutdown failed", "error", err)
		}
		rt.Logger.Info("magnetd stopped")
	}
}
