package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apppowertechnology/polsa-airtime-backend/internal/archive"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/cache"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/config"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/cooldown"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/events"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/features"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/handler"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/ledger"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/middleware"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/obs"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/provider"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/service"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/tracing"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := obs.NewLogger()
	metrics := obs.NewMetrics()

	// Tracing
	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "polsa-airtime-backend",
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(ctx)
	}()

	// Feature flags
	flags := features.NewManager()
	flags.Register(features.FeatureCooldownEnabled, cfg.Cooldown.Enabled, "Per-phone claim cooldown pre-filter")
	flags.Register(features.FeatureArchiveEnabled, cfg.Archive.Enabled, "Sqlite transaction archive sink")
	flags.Register(features.FeatureEventHooksEnabled, cfg.Events.Enabled, "Event-driven hooks")

	// Shared state: the ledger starts fresh on every boot.
	ldg := ledger.New(cfg.Site.Online, cfg.Site.ClaimLimit)

	// Cooldown cache: Redis if configured, in-memory otherwise.
	var cooldownGuard *cooldown.Guard
	if cfg.Cooldown.Enabled {
		var store cache.Cache
		if cfg.Redis.Addr != "" {
			redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				log.Fatalf("Failed to connect cooldown cache: %v", err)
			}
			defer redisCache.Close()
			store = redisCache
		} else {
			store = cache.NewInMemoryCache()
		}
		cooldownGuard = cooldown.New(store, time.Duration(cfg.Cooldown.Seconds)*time.Second)
	}

	// Archive sink
	var archiveStore *archive.Store
	if cfg.Archive.Enabled {
		archiveStore, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			log.Fatalf("Failed to open transaction archive: %v", err)
		}
		defer archiveStore.Close()
	}

	// Event hooks: log claim activity out of band.
	eventManager := events.NewManager(cfg.Events.Enabled)
	defer eventManager.Shutdown()
	eventManager.Subscribe(events.EventClaimSucceeded, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.ClaimSucceededData); ok {
			logger.Info(map[string]interface{}{
				"event":  string(e.Type),
				"txn":    data.Record.ID,
				"phone":  data.Record.MobileNumber,
				"status": string(data.Record.Status),
			})
		}
		return nil
	})
	eventManager.Subscribe(events.EventAdminAction, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.AdminActionData); ok {
			logger.Info(map[string]interface{}{
				"event":        string(e.Type),
				"admin_op":     data.Op,
				"online":       data.State.IsOnline,
				"claim_limit":  data.State.ClaimLimit,
				"claims_today": data.State.ClaimsToday,
			})
		}
		return nil
	})

	providerClient := provider.New(cfg.Provider.BaseURL, nil)

	svc := service.New(service.Deps{
		Ledger:     ldg,
		Provider:   providerClient,
		Cooldown:   cooldownGuard,
		Archive:    archiveStore,
		Events:     eventManager,
		Flags:      flags,
		Logger:     logger,
		Metrics:    metrics,
		APIKey:     cfg.Provider.APIKey,
		AdminPhone: cfg.Admin.Phone,
		AdminPIN:   cfg.Admin.PIN,
	})

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.TracingMiddleware())

	// Routes
	r.Post("/api/claim", h.SubmitClaim)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.AdminLogin)
		r.Post("/state", h.AdminState)
		r.Post("/history", h.AdminHistory)
		r.Post("/toggle", h.AdminToggle)
		r.Post("/limit", h.AdminSetLimit)
		r.Post("/reset", h.AdminReset)
		r.Post("/send", h.AdminSend)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting HTTP server on %s", addr)
	log.Printf("Site online: %v, claim limit: %d", cfg.Site.Online, cfg.Site.ClaimLimit)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
