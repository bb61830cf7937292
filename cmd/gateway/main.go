package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/bootstrap"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/controller"
	infraRedis "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/redis"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/repository/postgres"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "callback-gateway", "gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Persistence and messaging ---
	store := postgres.NewCallbackRepository(app.Pool)
	notifier := infraRedis.NewStreamProducer(app.Redis)
	stateCache := infraRedis.NewStateCache(app.Redis, app.Config.Gateway.StateCacheTTL)

	// --- Reconciliation engine ---
	reconciler := service.NewReconciler(
		store,
		notifier,
		stateCache,
		app.Config.Gateway,
		app.Metrics,
		app.Logger,
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:        app.Pool,
		RedisClient: app.Redis,
		Reconciler:  reconciler,
		Metrics:     app.Metrics,
		Server:      app.Config.Server,
		Gateway:     app.Config.Gateway,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
