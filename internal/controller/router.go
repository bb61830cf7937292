package controller

import (
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/config"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/observability"
	customMW "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/middleware"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Reconciler  *service.Reconciler
	Metrics     *observability.Metrics
	Server      config.ServerConfig
	Gateway     config.GatewayConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", XVerifyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.Server.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	callbackH := NewCallbackController(deps.Reconciler, deps.Gateway.MaxBodyBytes)
	transactionH := NewTransactionController(deps.Reconciler)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Server.RateLimitPerMin > 0 {
			r.Use(customMW.RateLimit(deps.Server.RateLimitPerMin))
		}

		// Provider callbacks
		r.Post("/callbacks/{rail}", callbackH.Receive)

		// Polling read model
		r.Get("/transactions/{transactionId}/status", transactionH.GetStatus)
		r.Get("/transactions/{transactionId}/events", transactionH.GetEvents)

		// Manual review of unmapped outcomes
		r.Get("/review", transactionH.ListReview)
		r.Post("/review/{transactionId}/resolve", transactionH.Resolve)
	})

	return r
}
