// Package web exposes the file intake service over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/fileintake/internal/config"
	"github.com/JonMunkholm/fileintake/internal/core"
	webmw "github.com/JonMunkholm/fileintake/internal/web/middleware"
)

// multipartSlack is the body allowance for multipart framing and form
// fields on top of the file bytes themselves.
const multipartSlack = 1 << 20

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to temporary files.
const multipartMemory = 8 << 20

// Server is the HTTP server for the file intake API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	generalLimiter *ipRateLimiter
	uploadLimiter  *ipRateLimiter
	keyOwners      map[string]string
}

// NewServer creates a Server with its middleware and routes in place.
func NewServer(service *core.Service, cfg *config.Config) (*Server, error) {
	if service == nil || cfg == nil {
		return nil, errors.New("web: service and config are required")
	}
	owners, err := cfg.Security.KeyOwners()
	if err != nil {
		return nil, err
	}

	s := &Server{
		service:   service,
		cfg:       cfg,
		router:    chi.NewRouter(),
		keyOwners: owners,
	}
	if cfg.Rate.Enabled {
		s.generalLimiter = newIPRateLimiter(cfg.Rate.RequestsPerMinute)
		s.uploadLimiter = newIPRateLimiter(cfg.Rate.UploadLimit)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(s.securityHeaders)
	s.router.Use(s.generalLimiter.middleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/uploads", func(r chi.Router) {
		r.Use(webmw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.keyOwners))
		r.Use(withRequestMetadata)

		r.Group(func(r chi.Router) {
			r.Use(s.uploadLimiter.middleware)
			r.Post("/", s.handleUpload)
			r.Post("/batch", s.handleUploadBatch)
			r.Post("/import", s.handleImport)
		})

		r.Get("/import/types", s.handleImportTypes)
		r.Get("/files/{storageId}", s.handleServeFile)
		r.Head("/files/{storageId}", s.handleServeFile)
		r.Get("/files/{storageId}/info", s.handleFileInfo)
		r.Delete("/files/{storageId}", s.handleDeleteFile)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondFailure(w, http.StatusNotFound, "Route not found", r.Method+" "+r.URL.Path, "")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondFailure(w, http.StatusMethodNotAllowed, "Method not allowed", "", "")
	})
}

// Start begins listening on the configured address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // Zero for long streamed downloads
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	s.generalLimiter.Close()
	s.uploadLimiter.Close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses. Uploaded content
// is served from this origin, so the CSP sandboxes it.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; frame-ancestors 'none'; sandbox")
		}
		next.ServeHTTP(w, r)
	})
}
