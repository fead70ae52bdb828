package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dpup/prefab"
	"github.com/dpup/prefab/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/dpup/fireproof/server/internal/cache"
	"github.com/dpup/fireproof/server/internal/clients/firms"
	"github.com/dpup/fireproof/server/internal/clients/opencellid"
	"github.com/dpup/fireproof/server/internal/clients/ors"
	"github.com/dpup/fireproof/server/internal/clients/overpass"
	"github.com/dpup/fireproof/server/internal/clients/transport"
	"github.com/dpup/fireproof/server/internal/config"
	"github.com/dpup/fireproof/server/internal/handlers"
	"github.com/dpup/fireproof/server/internal/lib/routing"
	"github.com/dpup/fireproof/server/internal/metrics"
	"github.com/dpup/fireproof/server/internal/services"
)

func main() {
	// A local .env is optional
	_ = godotenv.Load()

	// Configuration is loaded from prefab.yaml and environment variables with PF__ prefix,
	// then API keys from the usual environment variables
	appConfig, err := config.Load(prefab.Config, os.Getenv)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// Every request and background task logs through this logger
	baseCtx := logging.With(context.Background(), logging.NewProdLogger())
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	navigation := newNavigationService(ctx, appConfig)

	log.Printf("Fireproof API server starting")
	log.Printf("Fire sensors: %v", appConfig.Fires.Sensors)
	if appConfig.Fires.APIKey == "" {
		log.Printf("FIRMS_API_KEY not set, fire data will be unavailable")
	}
	if appConfig.Routing.APIKey == "" {
		log.Printf("ORS_API_KEY not set, routing will fail")
	}
	if appConfig.Towers.APIKey == "" {
		log.Printf("OPENCELLID_API_KEY not set, coverage estimated from danger zones only")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     appConfig.Server.CorsOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false, // wildcard origins
	}))
	router.Use(handlers.RequestIDMiddleware())
	router.Use(handlers.RateLimitMiddleware(appConfig.Server.RateLimitRPS))

	handlers.NewHandler(navigation, appConfig.Routing.Profile).RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port),
		Handler:      http.TimeoutHandler(router, appConfig.Server.RequestTimeout, `{"error":"request timed out"}`),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: appConfig.Server.RequestTimeout + 5*time.Second,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	go func() {
		log.Printf("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// newNavigationService wires the provider clients into the navigation service
func newNavigationService(ctx context.Context, cfg *config.Config) *services.NavigationService {
	var fireSource services.FireSource = firms.NewClientWithHTTPDoer(cfg.Fires.APIKey, cfg.Fires.BaseURL,
		transport.Instrument("firms", transport.NewHTTPClient(cfg.Fires.Timeout)))
	if cfg.Fires.CacheTTL > 0 {
		feedCache := cache.NewCache()
		feedCache.StartPeriodicCleanup(ctx, cfg.Fires.CacheTTL)
		fireSource = cache.NewFireFeedCache(fireSource, feedCache, cfg.Fires.CacheTTL)
		log.Printf("Fire feed cache enabled (ttl: %s)", cfg.Fires.CacheTTL)
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Routing.RequestsPerMinute)), 1)
	orsClient := ors.NewClientWithHTTPDoer(cfg.Routing.APIKey, cfg.Routing.BaseURL,
		transport.Instrument("ors", transport.NewHTTPClient(cfg.Routing.Timeout))).WithLimiter(limiter)

	overpassClient := overpass.NewClient(cfg.Places.Mirrors,
		transport.Instrument("overpass", transport.NewHTTPClient(cfg.Places.Timeout)))

	var towers services.TowerSource
	if cfg.Towers.APIKey != "" {
		towers = opencellid.NewClientWithHTTPDoer(cfg.Towers.APIKey, cfg.Towers.BaseURL,
			transport.Instrument("opencellid", transport.NewHTTPClient(cfg.Towers.Timeout)))
	}

	return services.NewNavigationService(
		services.NewFireService(fireSource, &cfg.Fires),
		services.NewSafePlaceService(overpassClient, &cfg.Places),
		towers,
		routing.NewPlanner(orsClient),
		cfg,
	)
}
