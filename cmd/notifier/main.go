package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/bootstrap"
	infraRedis "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/redis"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "callback-notifier", "gateway_notifier")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	workerCfg := app.Config.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.StateChangeStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	producer := infraRedis.NewStreamProducer(app.Redis)
	deliverer := worker.NewDeliverer(
		consumer,
		producer,
		app.Redis,
		workerCfg,
		app.Config.Gateway,
		app.Metrics,
		app.Logger,
	)

	app.Logger.Info().
		Str("stream", infraRedis.StateChangeStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Notifier started, listening for state changes...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Main delivery loop.
	g.Go(func() error {
		return deliverer.Run(gCtx)
	})

	// 2. Reclaim loop for messages stranded by dead consumers.
	g.Go(func() error {
		return deliverer.RunReclaim(gCtx)
	})

	// 3. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down notifier...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Notifier error")
	}
	app.Logger.Info().Msg("Notifier exited")
}
