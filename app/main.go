package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HPDell/RSSHub/app/api"
	"github.com/HPDell/RSSHub/app/cache"
	"github.com/HPDell/RSSHub/app/cfg"
	"github.com/HPDell/RSSHub/app/fetch"
	"github.com/HPDell/RSSHub/app/proxy"
	"github.com/HPDell/RSSHub/app/sources/bilibili"
	"github.com/HPDell/RSSHub/app/sources/whurs"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Configuration error", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting RSSHub server", "version", appCfg.Version)

	var store cache.Store
	if appCfg.RedisAddr != "" {
		redisStore, err := cache.NewRedisStore(appCfg.RedisAddr)
		if err != nil {
			slog.Error("Failed to connect to Redis", "addr", appCfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		slog.Info("Using Redis cache", "addr", appCfg.RedisAddr)
		store = redisStore
	} else {
		slog.Info("No Redis address configured, using in-process memory cache")
		store = cache.NewMemoryStore()
	}
	detailCache := cache.New(store, time.Duration(appCfg.CacheTTL)*time.Second)

	client := fetch.NewClient(time.Duration(appCfg.HTTPTimeout)*time.Second, appCfg.UserAgent)

	providers, err := proxy.LoadProviders(appCfg.ProxyProviders)
	if err != nil {
		slog.Error("Failed to load proxy providers", "file", appCfg.ProxyProviders, "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(
		whurs.New(client, detailCache, appCfg.SectionPolicy),
		bilibili.New(client, detailCache),
		proxy.NewHandler(client, providers),
	)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
