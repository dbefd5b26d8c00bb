// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "ninefold/internal/auth/handler"
	authmiddleware "ninefold/internal/auth/middleware"
	authservice "ninefold/internal/auth/service"
	"ninefold/internal/auth/store/apikey"
	"ninefold/internal/cache"
	"ninefold/internal/classifier"
	decstore "ninefold/internal/decisions/store"
	"ninefold/internal/gateway"
	gatewayhandler "ninefold/internal/gateway/handler"
	jwttoken "ninefold/internal/jwt_token"
	"ninefold/internal/lifecycle"
	lifecyclekafka "ninefold/internal/lifecycle/kafka"
	"ninefold/internal/platform/config"
	"ninefold/internal/platform/httpserver"
	"ninefold/internal/platform/logger"
	platformmetrics "ninefold/internal/platform/metrics"
	platformmiddleware "ninefold/internal/platform/middleware"
	platformredis "ninefold/internal/platform/redis"
	ratelimitmiddleware "ninefold/internal/ratelimit/middleware"
	ratemodels "ninefold/internal/ratelimit/models"
	ratelimitservice "ninefold/internal/ratelimit/service"
	"ninefold/internal/ratelimit/store/bucket"
	"ninefold/internal/registry"
	"ninefold/internal/registry/health"
	registrymetrics "ninefold/internal/registry/metrics"
	"ninefold/internal/router"
	routermetrics "ninefold/internal/router/metrics"
	"ninefold/internal/specialist/httpclient"
	"ninefold/internal/synthesizer"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("could not load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := platformmetrics.New()

	// registry, seeded and probed in the background
	reg := registry.New(
		registry.WithHealthyThreshold(cfg.Probe.HealthyThreshold),
		registry.WithUnhealthyThreshold(cfg.Probe.UnhealthyThreshold),
	)
	seed := registry.DefaultSeed(cfg.Specialists.BaseURL)
	if cfg.Specialists.SeedFile != "" {
		if seed, err = registry.LoadSeedFile(cfg.Specialists.SeedFile); err != nil {
			log.Error("could not load specialist seed", "error", err)
			os.Exit(1)
		}
	}
	for _, r := range seed {
		reg.Register(r)
	}
	log.Info("specialist registry seeded", "specialists", len(seed))

	specialistClient := httpclient.New(&http.Client{Timeout: cfg.Routing.CallTimeout})

	var publisher lifecycle.Publisher = lifecycle.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := lifecyclekafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("could not connect lifecycle publisher", "error", err)
			os.Exit(1)
		}
		publisher = kp
		log.Info("lifecycle events publishing to kafka", "topic", cfg.Kafka.Topic)
	}
	defer func() { _ = publisher.Close() }()

	prober := health.New(reg, specialistClient, publisher, log, registrymetrics.New(),
		cfg.Probe.Interval, cfg.Probe.Timeout)
	go prober.Run(ctx)

	// result cache: redis when configured, otherwise in-process
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("could not connect to redis", "error", err)
		os.Exit(1)
	}
	var cacheStore cache.Store
	switch {
	case cfg.Cache.Disabled:
		cacheStore = cache.Noop{}
	case redisClient != nil:
		defer func() { _ = redisClient.Close() }()
		cacheStore = cache.NewRedis(redisClient.Client)
		log.Info("result cache backed by redis")
	default:
		mem := cache.NewMemory()
		go mem.RunJanitor(ctx, cfg.Cache.SweepInterval)
		cacheStore = mem
	}

	// routing decision history: postgres when configured
	var decisionStore decstore.Store = decstore.NewInMemory(0)
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err == nil {
			err = db.PingContext(ctx)
		}
		if err != nil {
			log.Error("could not connect to postgres", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		decisionStore = decstore.NewPostgres(db)
		log.Info("routing decisions persisted to postgres")
	}

	cls := classifier.New(
		classifier.WithMaxQueryLen(cfg.Classifier.MaxQueryLen),
		classifier.WithInclusionThreshold(cfg.Classifier.InclusionThreshold),
		classifier.WithFallbackDomain(cfg.Classifier.FallbackDomain),
	)
	rt := router.New(cls, reg, specialistClient, log, routermetrics.New(), router.Config{
		MaxSpecialists:     cfg.Routing.MaxSpecialists,
		DominanceRatio:     cfg.Routing.DominanceRatio,
		CallTimeout:        cfg.Routing.CallTimeout,
		OverallDeadline:    cfg.Routing.OverallDeadline,
		RetryBackoff:       cfg.Routing.RetryBackoff,
		FallbackSpecialist: cfg.Routing.FallbackSpecialist,
	})
	synth := synthesizer.New(synthesizer.Config{
		FloorConfidence: cfg.Synthesis.FloorConfidence,
		CeilConfidence:  cfg.Synthesis.CeilConfidence,
		MaxDropPenalty:  cfg.Synthesis.MaxDropPenalty,
	})
	gatewayService := gateway.New(rt, synth, reg, cacheStore, decisionStore, log, metrics, cfg.Cache.TTL)

	tokens := jwttoken.New(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	authService := authservice.New(apikey.NewInMemory(), tokens, cfg.Auth.TokenTTL, log)
	if cfg.Bootstrap.CallerID != "" {
		minted, err := authService.MintKey(ctx, cfg.Bootstrap.CallerID, ratemodels.ParseTier(cfg.Bootstrap.Tier))
		if err != nil {
			log.Error("could not mint bootstrap api key", "error", err)
			os.Exit(1)
		}
		// shown once; there is no way to recover it later
		log.Info("bootstrap api key minted", "caller_id", minted.CallerID, "api_key", minted.Plaintext)
	}

	limiter := ratelimitservice.New(bucket.NewInMemoryBucketStore(), cfg.RateLimit)

	r := chi.NewRouter()
	r.Use(platformmiddleware.RequestID)
	r.Use(platformmiddleware.Recovery(log))
	r.Use(platformmiddleware.Logger(log))
	r.Use(platformmiddleware.Latency(metrics))
	r.Use(platformmiddleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(platformmiddleware.ContentTypeJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	authhandler.New(authService, log).Register(r)

	authMW := authmiddleware.New(authService, log, metrics)
	limitMW := ratelimitmiddleware.New(limiter, log, metrics)
	r.Group(func(protected chi.Router) {
		protected.Use(authMW.Authenticate)
		protected.Use(limitMW.Limit)
		gatewayhandler.New(gatewayService, log).Register(protected)
	})

	srv := httpserver.New(cfg.Server.Addr, r)
	go func() {
		log.Info("ninefold gateway listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
