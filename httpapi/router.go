// Package httpapi is the harness HTTP façade over the engine: a thin chi
// router translating JSON requests into engine calls, for local testing and
// the lazorctl CLI — not part of the core authorization kernel itself
// (spec.md §6 leaves the client/transport surface external).
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"lazorkit/engine"
)

// Config bundles the façade's dependencies.
type Config struct {
	Engine        *engine.Engine
	Authenticator *Authenticator
	Logger        *slog.Logger
}

// NewRouter builds the chi router: public health, wallet-lookup and
// transaction-submission routes, and admin routes that are JWT-gated when
// cfg.Authenticator is set.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{engine: cfg.Engine, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(otelhttp.NewMiddleware("lazorkit-httpapi"))
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/wallets/{address}", h.getWallet)

		v1.Route("/admin", func(admin chi.Router) {
			if cfg.Authenticator != nil {
				admin.Use(cfg.Authenticator.Middleware)
			}
			admin.Post("/initialize", h.postInitialize)
			admin.Post("/register-policy", h.postRegisterPolicy)
			admin.Post("/config/paused", h.postSetPaused)
		})

		v1.Route("/transactions", func(tx chi.Router) {
			tx.Post("/create-wallet", h.postCreateWallet)
			tx.Post("/execute", h.postExecuteTransaction)
			tx.Post("/invoke-policy", h.postInvokePolicy)
			tx.Post("/update-policy", h.postUpdatePolicy)
			tx.Post("/commit", h.postCommit)
			tx.Post("/execute-committed", h.postExecuteCommitted)
		})
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request", "method", r.Method, "path", r.URL.Path,
				"status", rec.status, "duration_ms", time.Since(start).Milliseconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
