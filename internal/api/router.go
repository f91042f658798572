// Package api is the HTTP boundary of the gateway.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikhilbhutani/ttsgateway/internal/api/handlers"
	"github.com/nikhilbhutani/ttsgateway/internal/api/middleware"
	"github.com/nikhilbhutani/ttsgateway/internal/auth"
	"github.com/nikhilbhutani/ttsgateway/internal/cache"
	"github.com/nikhilbhutani/ttsgateway/internal/config"
	"github.com/nikhilbhutani/ttsgateway/internal/schema"
)

// Deps are the collaborators the router is built from. Only Dispatcher is
// required.
type Deps struct {
	Dispatcher handlers.Dispatcher
	DB         *pgxpool.Pool
	Cache      *cache.Cache
	Usage      handlers.UsageSummarizer
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
}

type Router struct {
	mux     *chi.Mux
	cfg     config.ServerConfig
	deps    Deps
	jwt     *auth.JWTMiddleware
	limiter *middleware.RateLimiter
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	rt := &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg.Server,
		deps: deps,
	}
	if cfg.Auth.JWTSecret != "" {
		rt.jwt = auth.NewJWTMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}
	if cfg.Server.RateLimitRPS > 0 {
		rt.limiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	return rt
}

// Limiter returns the rate limiter, or nil when rate limiting is off.
func (rt *Router) Limiter() *middleware.RateLimiter { return rt.limiter }

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.CORSOrigins))

	// Health and metrics endpoints (no auth, no rate limit)
	health := handlers.NewHealthHandler(rt.deps.Dispatcher.Providers, rt.backends())
	r.Get(schema.RouteHealthz, health.Healthz)
	r.Get("/readyz", health.Readyz)

	if rt.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(rt.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	ttsH := handlers.NewTTSHandler(rt.deps.Dispatcher, rt.deps.Logger)

	r.Group(func(r chi.Router) {
		if rt.limiter != nil {
			r.Use(rt.limiter.Limit)
		}
		if rt.cfg.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(rt.cfg.RequestTimeout))
		}
		if rt.jwt != nil {
			r.Use(rt.jwt.Authenticate)
		}

		r.With(rt.scope(auth.ScopeRead)).Get(schema.RouteProviders, ttsH.Providers)
		r.With(rt.scope(auth.ScopeRead)).Get(schema.RouteVoices, ttsH.Voices)
		r.With(rt.scope(auth.ScopeRead)).Get(schema.RouteStatus, ttsH.Status)
		r.With(rt.scope(auth.ScopeRead)).Get(schema.RouteSchema, ttsH.Schema)
		r.With(rt.scope(auth.ScopeSynthesize)).Post(schema.RouteTTS, ttsH.Synthesize)

		if rt.deps.Usage != nil {
			usageH := handlers.NewUsageHandler(rt.deps.Usage, rt.deps.Logger)
			r.With(rt.scope(auth.ScopeAdmin)).Get("/v1/usage", usageH.Usage)
		}
	})

	return r
}

// backends lists the configured services readiness depends on.
func (rt *Router) backends() map[string]handlers.Pinger {
	out := map[string]handlers.Pinger{}
	if rt.deps.DB != nil {
		out["database"] = rt.deps.DB
	}
	if rt.deps.Cache != nil {
		out["redis"] = rt.deps.Cache
	}
	return out
}

// scope enforces a JWT scope when auth is enabled and is a no-op otherwise.
func (rt *Router) scope(s string) func(http.Handler) http.Handler {
	if rt.jwt == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.RequireScope(s)
}
