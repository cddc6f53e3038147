package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"footy_go/internal/app"
	"footy_go/internal/infra/httpapi"
	"footy_go/internal/infra/ws"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Background Asset Sync
	go bootstrap.SyncAssets(ctx)

	// 5. Live feed pipeline
	bootstrap.Driver.Start(ctx)
	defer bootstrap.Driver.Stop()
	slog.InfoContext(ctx, "✅ Feed driver started", slog.String("source", bootstrap.Config.Feed.Source))

	// 6. HTTP + WebSocket server
	mux := http.NewServeMux()
	httpapi.New(bootstrap.Registry, bootstrap.Ledger, bootstrap.Storage).Register(mux)
	mux.HandleFunc("GET /ws/prices", ws.NewServer(bootstrap.Hub).HandlePrices)

	server := &http.Server{
		Addr:    bootstrap.Config.Server.Addr,
		Handler: mux,
	}
	go func() {
		slog.Info("✅ API server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server failed", slog.Any("error", err))
			stop()
		}
	}()

	slog.InfoContext(ctx, "✨ Footy Go fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("API server shutdown incomplete", slog.Any("error", err))
	}
	bootstrap.Driver.Stop()
}
