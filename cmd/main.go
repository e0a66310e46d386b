/*
Package main is the entry point of the presence gateway.

It loads configuration, initializes the global logging system, builds the ephemeral
store, the metrics registry and the WebSocket Hub, serves HTTP, and handles operating
system interrupt signals (SIGINT, SIGTERM) to shut down gracefully.
*/
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

	"github.com/Aequiternus/rtcs.io-storage/internal/app/chat"
	"github.com/Aequiternus/rtcs.io-storage/internal/app/session"
	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
	"github.com/Aequiternus/rtcs.io-storage/internal/configs"
	"github.com/Aequiternus/rtcs.io-storage/internal/handler"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/logx"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/metrics"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("history_length", cfg.Store.HistoryLength).
		Dur("history_expire", cfg.Store.HistoryExpire).
		Dur("token_expire", cfg.Store.TokenExpire).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := session.NewResolver(cfg.JWTSecret)
	if err != nil {
		logx.Fatal(err, "Failed to create session resolver")
	}

	st := store.New(cfg.StoreConfig(), store.WithSessionResolver(resolver))

	registry, err := metrics.NewRegistry(st)
	if err != nil {
		logx.Fatal(err, "Failed to register metrics")
	}

	hub := chat.NewHub(st, registry.Gateway)
	limiters := handler.NewLimiters()

	router := handler.Router(&handler.AppDeps{
		Config:  cfg,
		Store:   st,
		Hub:     hub,
		Metrics: registry,
	}, limiters)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info("Server starting.", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Hub forced to shutdown")
	}

	limiters.Stop()
	st.Close()

	logx.Info("Server gracefully stopped.")
}
