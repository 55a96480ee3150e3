package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"traffic-worker-go/internal/api"
	"traffic-worker-go/internal/config"
	"traffic-worker-go/internal/logging"
	"traffic-worker-go/internal/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Console logging until the configuration is known
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	closeLogs, err := logging.Setup(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to set up logging")
		return 1
	}
	defer closeLogs()

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("lane_strategy", cfg.LaneStrategy).
		Bool("single_image", cfg.SingleImage()).
		Msg("Starting traffic worker")

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize services")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *api.Server
	if cfg.APIEnabled {
		server = api.NewServer(cfg, container.Store, container.LinkStatus())
		go func() {
			if err := server.Start(); err != nil {
				log.Error().Err(err).Msg("Status API failed")
				stop()
			}
		}()
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- container.Run(ctx)
	}()

	var runErr error
	select {
	case runErr = <-runDone:
		log.Info().Msg("Pipeline finished")
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
		runErr = <-runDone
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Service shutdown incomplete")
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("Pipeline stopped with error")
		return 1
	}
	log.Info().Msg("Shutdown complete")
	return 0
}
