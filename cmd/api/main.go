package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/db"
	"github.com/my-little-thingz/backend-gifts/internal/analytics"
	"github.com/my-little-thingz/backend-gifts/internal/app"
	"github.com/my-little-thingz/backend-gifts/internal/cart"
	"github.com/my-little-thingz/backend-gifts/internal/catalog"
	"github.com/my-little-thingz/backend-gifts/internal/checkout"
	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/config"
	"github.com/my-little-thingz/backend-gifts/internal/custom"
	"github.com/my-little-thingz/backend-gifts/internal/events"
	"github.com/my-little-thingz/backend-gifts/internal/health"
	"github.com/my-little-thingz/backend-gifts/internal/lock"
	"github.com/my-little-thingz/backend-gifts/internal/notify"
	"github.com/my-little-thingz/backend-gifts/internal/obs"
	"github.com/my-little-thingz/backend-gifts/internal/order"
	"github.com/my-little-thingz/backend-gifts/internal/payment"
	"github.com/my-little-thingz/backend-gifts/internal/ratelimit"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
	"github.com/my-little-thingz/backend-gifts/internal/resilience"
	"github.com/my-little-thingz/backend-gifts/internal/reviews"
	"github.com/my-little-thingz/backend-gifts/internal/security"
	"github.com/my-little-thingz/backend-gifts/internal/shipping"
	"github.com/my-little-thingz/backend-gifts/internal/subscription"
	"github.com/my-little-thingz/backend-gifts/internal/wishlist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "gifts")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "gifts-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if envBool("DB_MIGRATE_ON_START", true) {
		migrator, err := db.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("build migrator")
		}
		if err := app.RunMigrations(migrator); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "gifts-api"

	pool, err := pgxpool.NewWithConfig(initCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(initCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	queries := repo.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(initCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}
	taskClient := asynq.NewClient(asynqOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	bus := &events.Bus{
		Store:     queries,
		Notifiers: []events.Notifier{notify.NewAsynqNotifier(taskClient, logger)},
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Queries: queries,
		Cache:   catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogSvc)

	cartSvc := &cart.Service{Q: queries}
	cartHandler := cart.NewHandler(cartSvc)

	checkoutHandler := &checkout.Handler{Svc: &checkout.Service{
		Pool:    pool,
		Q:       queries,
		Locker:  lock.Locker{R: redisClient},
		LockTTL: cfg.CheckoutLockTTL,
		Events:  bus,
	}}

	outboundHTTP := resilience.HTTPClient{
		Client:      &http.Client{Timeout: 15 * time.Second},
		Breaker:     resilience.NewBreaker(10, 0.5, 30*time.Second),
		BaseBackoff: 200 * time.Millisecond,
		MaxAttempts: 3,
		Jitter:      0.2,
	}

	var shipClient shipping.Client
	if cfg.ShippingConfigured() {
		shipClient = &shipping.Shiprocket{
			Email:    cfg.ShiprocketEmail,
			Password: cfg.ShiprocketPassword,
			HTTP:     outboundHTTP,
		}
	} else {
		logger.Warn().Msg("shiprocket credentials missing, using mock shipping client")
		shipClient = shipping.MockClient{RatePerKg: cfg.ShippingRatePerKg, Minimum: cfg.ShippingMinimum}
	}
	shipSvc := &shipping.Service{
		Q:               queries,
		Client:          shipClient,
		Redis:           redisClient,
		CacheTTL:        cfg.QuoteCacheTTL,
		PickupPincode:   cfg.ShiprocketPickupPincode,
		RatePerKg:       cfg.ShippingRatePerKg,
		Minimum:         cfg.ShippingMinimum,
		DefaultWeightKg: decimal.NewFromFloat(cfg.DefaultItemWeightKg),
	}
	shipHandler := shipping.NewHandler(shipSvc)

	var gateway payment.Provider
	if cfg.PaymentConfigured() {
		gateway = payment.Razorpay{
			KeyID:     cfg.RazorpayKeyID,
			KeySecret: cfg.RazorpayKeySecret,
			HTTP:      outboundHTTP,
		}
	} else {
		logger.Warn().Msg("razorpay credentials missing, using mock payment provider")
		gateway = &payment.MockProvider{Accept: true}
	}
	paymentHandler := payment.NewHandler(&payment.Service{
		Q:             queries,
		Provider:      gateway,
		Shipping:      shipSvc,
		Events:        bus,
		Currency:      cfg.Currency,
		WebhookSecret: cfg.RazorpayWebhookSecret,
	})

	orderHandler := &order.Handler{Q: queries, Shipping: shipSvc}
	orderAdmin := &order.AdminHandler{Q: queries}

	customHandler := custom.NewHandler(&custom.Service{Q: queries, Events: bus})
	wishlistHandler := &wishlist.Handler{Q: queries}
	reviewsHandler := reviews.NewHandler(&reviews.Service{Q: queries})
	subscriptionHandler := subscription.NewHandler(&subscription.Service{Q: queries, Events: bus})

	analyticsHandler := &analytics.Handler{Svc: &analytics.Service{
		Q:            queries,
		R:            redisClient,
		TTL:          cfg.AnalyticsCacheTTL,
		DefaultRange: cfg.AnalyticsRangeDays,
	}}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	limiter, err := ratelimit.New(redisClient, cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	limited := ratelimit.Middleware(limiter)

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-Idempotency-Key", "X-Razorpay-Signature"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
	r.Use(common.IdentityMiddleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.PoolChecker{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/artworks", catalogHandler.Artworks)
		v.Get("/artworks/{id}", catalogHandler.ArtworkDetail)
		v.Get("/artworks/{id}/related", catalogHandler.Related)
		v.Get("/artworks/{id}/pricing-rules", catalogHandler.PricingRulesEndpoint)

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Post("/quote", cartHandler.QuoteHandler)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/items", cartHandler.AddItem)
				g.Patch("/items/{itemId}", cartHandler.UpdateItem)
				g.Delete("/items/{itemId}", cartHandler.DeleteItem)
			})
		})

		v.With(idem.Middleware, limited).Post("/checkout", checkoutHandler.Checkout)

		v.Route("/payments", func(p chi.Router) {
			p.With(idem.Middleware, limited).Post("/orders", paymentHandler.CreateOrder)
			p.With(limited).Post("/verify", paymentHandler.Verify)
			p.Post("/webhook", paymentHandler.Webhook)
		})

		v.Get("/orders", orderHandler.List)
		v.Get("/orders/{orderId}", orderHandler.Get)
		v.Post("/orders/{orderId}/cancel", orderHandler.Cancel)
		v.Get("/orders/{orderId}/tracking", orderHandler.Tracking)

		v.Post("/shipping/quote", shipHandler.QuoteHandler)

		v.Route("/wishlist", func(wl chi.Router) {
			wl.Get("/", wishlistHandler.List)
			wl.Post("/toggle", wishlistHandler.Toggle)
			wl.Get("/{artworkId}", wishlistHandler.Check)
			wl.Delete("/{artworkId}", wishlistHandler.Remove)
		})

		v.Route("/custom-requests", func(cr chi.Router) {
			cr.Post("/", customHandler.Create)
			cr.Get("/", customHandler.List)
			cr.Get("/status", customHandler.Status)
		})

		v.Route("/reviews", func(rv chi.Router) {
			rv.Post("/", reviewsHandler.Create)
			rv.Get("/rateable", reviewsHandler.Rateable)
			rv.Get("/{artworkId}", reviewsHandler.ByArtwork)
		})

		v.Route("/subscriptions", func(sub chi.Router) {
			sub.Get("/plans", subscriptionHandler.ListPlans)
			sub.Post("/purchase", subscriptionHandler.Activate)
			sub.Get("/status", subscriptionHandler.Status)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(common.RequireUser)
			admin.Use(requireAdminKey(envOrDefault("ADMIN_API_KEY", "")))
			admin.Patch("/custom-requests/{requestId}", customHandler.Resolve)
			admin.Post("/orders/{orderId}/shipment", orderAdmin.BookShipment)
			admin.Get("/analytics/sales", analyticsHandler.Sales)
			admin.Get("/analytics/top-artworks", analyticsHandler.TopArtworks)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	health.SetReady(false)
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		logger.Info().Msg("shutdown complete")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// requireAdminKey gates admin routes behind a shared secret while account
// roles live in the identity gateway. An empty key disables the gate outside
// production use.
func requireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Admin-Key")), []byte(key)) != 1 {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
