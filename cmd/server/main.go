package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ideas-feedback/internal/cache"
	"ideas-feedback/internal/config"
	"ideas-feedback/internal/feedback"
	"ideas-feedback/internal/handlers"
	"ideas-feedback/internal/logger"
	"ideas-feedback/internal/metrics"
	"ideas-feedback/internal/notify"
	"ideas-feedback/internal/ratelimit"
	"ideas-feedback/internal/repository"
	"ideas-feedback/internal/router"
	"ideas-feedback/internal/token"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	log := logger.New(getLogLevel(cfg), "ideas-feedback")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.SaltFromSecret {
		log.Warn().Msg("FINGERPRINT_SALT not set, using the signing secret; rotating FEEDBACK_SECRET_KEY will also reset submitter fingerprints")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Idea store
	store, closeStore, err := repository.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open idea store")
	}

	// Aggregate cache (optional)
	aggCache := cache.New(ctx, cfg.RedisURL, log)

	codec, err := token.NewCodec([]byte(cfg.SigningSecret), token.WithDefaultTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token codec")
	}

	limiter, err := ratelimit.New(ratelimit.Config{Max: cfg.RateLimitMax, Window: cfg.RateLimitWindow})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create rate limiter")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	aggCfg := feedback.Config{
		CommentMaxLength: cfg.CommentMaxLength,
		Logger:           log.With().Str("component", "aggregator").Logger(),
	}
	if aggCache.Enabled() {
		aggCfg.Cache = aggCache
	}
	aggregator := feedback.NewAggregator(store, aggCfg)

	checks := map[string]repository.Pinger{}
	if p, ok := store.(repository.Pinger); ok {
		checks["store"] = p
	}
	if aggCache.Enabled() {
		checks["redis"] = aggCache
	}

	h := &router.Handlers{
		Feedback: handlers.NewFeedbackHandler(handlers.FeedbackDeps{
			Codec:           codec,
			Ideas:           store,
			Aggregator:      aggregator,
			Notifier:        notify.NewLogNotifier(log),
			Metrics:         m,
			Logger:          log,
			FingerprintSalt: cfg.FingerprintSalt,
			TrustProxy:      cfg.TrustProxyHeaders,
		}),
		Health: handlers.NewHealthHandler(version, checks, log),
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(h, router.Options{
			Logger:      log,
			Metrics:     m,
			Limiter:     limiter,
			CORSOrigins: cfg.CORSOrigins,
			TrustProxy:  cfg.TrustProxyHeaders,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("ideas feedback service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := aggCache.Close(); err != nil {
		log.Warn().Err(err).Msg("closing redis failed")
	}
	if err := closeStore(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("closing idea store failed")
	}
}

func getLogLevel(cfg *config.Config) string {
	if cfg != nil {
		return cfg.LogLevel
	}
	return os.Getenv("LOG_LEVEL")
}
