package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the chi router every service's cmd/*/main.go
// mounts its handler on, with request logging and CORS pre-wired so
// each binary doesn't have to assemble the middleware chain itself.
func NewRouter(log *slog.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestLogger(log))
	r.Use(CORS(allowedOrigins))
	return r
}

// RequestLogger logs one structured line per request with method,
// path, status and latency, using chi's status-capturing
// ResponseWriter wrapper rather than a hand-rolled recorder.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

// CORS builds a permissive-by-configuration CORS middleware allowing
// the Idempotency-Key header the Order Service's create endpoint
// relies on.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Idempotency-Key", "Traceparent"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
