package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/jw6ventures/lifecard/internal/auth"
	"github.com/jw6ventures/lifecard/internal/config"
	"github.com/jw6ventures/lifecard/internal/dav"
	"github.com/jw6ventures/lifecard/internal/http/ratelimit"
	"github.com/jw6ventures/lifecard/internal/logger"
	"github.com/jw6ventures/lifecard/internal/metrics"
)

func init() {
	for _, method := range []string{"PROPFIND", "REPORT"} {
		chi.RegisterMethod(method)
	}
}

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewRouter wires the health, metrics, discovery and CardDAV routes. ctx
// bounds the lifetime of the rate limiter's janitor.
func NewRouter(ctx context.Context, cfg *config.Config, log logger.Logger, health HealthChecker, authService *auth.Service, davHandler *dav.Handler) http.Handler {
	r := chi.NewRouter()

	// DAV endpoints: 20 requests per second, burst of 50 (sync clients are chatty)
	davRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(20), 50, 5*time.Minute, cfg.TrustedProxies)
	go davRateLimiter.Run(ctx)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:     cfg.CORS.AllowedOrigins,
			AllowedMethods:     []string{"OPTIONS", "GET", "HEAD", "PUT", "DELETE", "PROPFIND", "REPORT"},
			AllowedHeaders:     []string{"Authorization", "Content-Type", "Depth", "If-Match", "If-None-Match"},
			ExposedHeaders:     []string{"DAV", "ETag"},
			AllowCredentials:   true,
			OptionsPassthrough: true,
		}).Handler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, healthResponse{Status: "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := health.HealthCheck(ctx); err != nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, healthResponse{Status: "unready", Error: "database unavailable"})
			return
		}
		render.JSON(w, r, healthResponse{Status: "ok"})
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	wellKnownHandler := func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/carddav/", http.StatusMovedPermanently)
	}
	r.Get("/.well-known/carddav", wellKnownHandler)
	r.MethodFunc("PROPFIND", "/.well-known/carddav", wellKnownHandler)

	r.Route("/carddav", func(r chi.Router) {
		r.Use(davRateLimiter.Middleware())

		// OPTIONS must be reachable without credentials for client discovery
		r.MethodFunc(http.MethodOptions, "/", davHandler.Options)
		r.MethodFunc(http.MethodOptions, "/*", davHandler.Options)

		r.Group(func(r chi.Router) {
			r.Use(authService.RequireDAVAuth)
			for _, pattern := range []string{"/", "/*"} {
				r.MethodFunc(http.MethodHead, pattern, davHandler.Head)
				r.MethodFunc(http.MethodGet, pattern, davHandler.Get)
				r.MethodFunc("PROPFIND", pattern, davHandler.Propfind)
				r.MethodFunc(http.MethodPut, pattern, davHandler.Put)
				r.MethodFunc(http.MethodDelete, pattern, davHandler.Delete)
				r.MethodFunc("REPORT", pattern, davHandler.Report)
			}
		})
	})

	return r
}

// requestLogger attaches the logger to each request context and logs one line
// per request once it completes.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

			reqLog.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
