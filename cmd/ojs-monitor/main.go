package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/openjobspec/ojs-monitor/internal/metrics"
	"github.com/openjobspec/ojs-monitor/internal/monitor"
	"github.com/openjobspec/ojs-monitor/internal/scheduler"
	"github.com/openjobspec/ojs-monitor/internal/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	statsSchedule, err := scheduler.ParseSchedule(cfg.StatsSchedule)
	if err != nil {
		slog.Error("invalid stats schedule", "error", err)
		os.Exit(1)
	}

	// Connect to every Redis instance
	instances, err := server.OpenInstances(cfg)
	if err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	dispatcher, err := server.NewDispatcher(cfg)
	if err != nil {
		slog.Error("failed to load SSH configuration", "paths", cfg.SSHConfigPaths, "error", err)
		os.Exit(1)
	}

	publisher, closePublisher, err := server.NewPublisher(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to set up audit events", "error", err)
		os.Exit(1)
	}

	mon := monitor.New(instances, dispatcher, publisher)
	defer mon.Close()

	// Initialize Prometheus server info metric
	metrics.Init(monitor.Version, strings.Join(mon.Instances(), ","))

	// Start background scheduler
	sched := scheduler.New(mon, statsSchedule, cfg.HealthInterval)
	sched.Start()
	defer sched.Stop()

	// Create HTTP server
	router := server.NewRouter(mon)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		slog.Info("OJS monitor listening", "port", cfg.Port, "instances", len(instances))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	closePublisher(ctx)

	slog.Info("server stopped")
}
