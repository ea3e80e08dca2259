package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"raincast/internal/types"
)

// MountRoutes defines the top-level routing hierarchy: the global middleware
// chain, the /v1 API group, and the health and metrics endpoints.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	s.router.Route("/v1", func(r chi.Router) {
		for _, registrar := range s.V1RouteRegistrars {
			registrar(r)
		}
	})

	s.router.Get("/health", s.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// registerGlobalMiddleware applies middleware in strict order:
//
//  1. Recoverer        - outermost, catches all panics.
//  2. ContextTimeout   - soft deadline on the request context.
//  3. RequestID        - correlation ID for logs and responses.
//  4. SecurityHeaders  - present on every response.
//  5. RequestLogger    - structured logging with redacted headers.
//  6. CORS             - browser access headers.
//  7. Metrics          - request latency and count recording.
//  8. VoterID          - resolves the effective voter identity.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.Config.Server.RequestTimeout))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.Config.Server.CorsAllowedOrigins))
	s.router.Use(s.MetricsMiddleware)
	s.router.Use(VoterIDMiddleware)
}

// ContextTimeoutMiddleware sets a deadline on the request context so no
// handler outlives the configured request budget.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware generates or propagates a unique request ID. An
// incoming X-Request-Id header is reused; otherwise a random ID is
// generated. The ID lands in the context and the response header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// VoterIDMiddleware resolves the effective voter identity for vote
// deduplication: the X-Voter-Id header when the client supplies one,
// otherwise the remote address.
func VoterIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		voter := r.Header.Get("X-Voter-Id")
		if voter == "" {
			voter = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(types.WithVoterID(r.Context(), voter)))
	})
}

// generateRequestID produces a random hex string for request correlation.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; still return
		// a non-empty ID for correlation.
		return "fallback-" + hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}
