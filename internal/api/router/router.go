// Package router provides HTTP routing configuration using Chi.
package router

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/remiblancher/qsig/internal/api/handler"
	"github.com/remiblancher/qsig/internal/api/middleware"
	"github.com/remiblancher/qsig/internal/api/service"
)

//go:embed openapi.yaml
var openapiSpec []byte

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 8 << 20

// Config holds router configuration.
type Config struct {
	Version string
	Service *service.SignatureService
	Logger  zerolog.Logger

	// CORS lists allowed origins. Empty disables CORS headers.
	CORS []string

	MaxBodyBytes int64

	// AuditFile enables the audit endpoints for this log when set.
	AuditFile string
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.MaxBody(maxBody))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// Health endpoints
	healthHandler := handler.NewHealthHandler(cfg.Version, map[string]func() bool{
		"signing_key": cfg.Service.CanSign,
	})
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// OpenAPI spec
	r.Get("/api/openapi.yaml", serveOpenAPISpec)

	sigHandler := handler.NewSignatureHandler(cfg.Service)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/algorithms", func(r chi.Router) {
			r.Get("/", sigHandler.Algorithms)
			r.Post("/resolve", sigHandler.Resolve)
		})

		r.Post("/sign", sigHandler.Sign)

		r.Route("/verify", func(r chi.Router) {
			r.Post("/", sigHandler.Verify)
			r.Post("/batch", sigHandler.VerifyBatch)
		})

		if cfg.AuditFile != "" {
			auditHandler := handler.NewAuditHandler(cfg.AuditFile)
			r.Route("/audit", func(r chi.Router) {
				r.Get("/logs", auditHandler.Logs)
				r.Get("/verify", auditHandler.Verify)
			})
		}
	})

	return r
}

// serveOpenAPISpec serves the OpenAPI specification file.
func serveOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiSpec)
}
