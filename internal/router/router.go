package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"ideas-feedback/internal/handlers"
	"ideas-feedback/internal/metrics"
	"ideas-feedback/internal/middleware"
	"ideas-feedback/internal/ratelimit"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Feedback *handlers.FeedbackHandler
	Health   *handlers.HealthHandler
}

type Options struct {
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	Limiter     *ratelimit.Limiter
	CORSOrigins []string
	TrustProxy  bool
}

// New configures the middleware stack and all routes.
func New(h *Handlers, opts Options) http.Handler {
	r := chi.NewRouter()

	// Middleware stack (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(opts.Logger, opts.TrustProxy))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/", h.Health.Index)
	r.Get("/health", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	// Link visits and submissions are throttled per client address
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.Limiter, opts.TrustProxy, opts.Metrics))

		r.Get("/feedback/{token}", h.Feedback.ShowIdea)
		r.Post("/api/feedback", h.Feedback.SubmitFeedback)
	})

	return r
}
