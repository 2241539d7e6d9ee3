// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package rest

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veridian-labs/passkey-server/internal/config"
	"github.com/veridian-labs/passkey-server/pkg/logging"
	"github.com/veridian-labs/passkey-server/pkg/metrics"
	"github.com/veridian-labs/passkey-server/pkg/passkey"
	passkeyhttp "github.com/veridian-labs/passkey-server/pkg/passkey/http"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server hosting the passkey API, the demo page,
// health and metrics endpoints.
type Server struct {
	server  *http.Server
	router  *chi.Mux
	config  *config.Config
	service *passkey.Service
	logger  *logging.Logger
	version string
}

// Params holds the dependencies for NewServer.
type Params struct {
	Config  *config.Config
	Service *passkey.Service
	Logger  *logging.Logger

	// Version is reported by the health endpoint (optional).
	Version string
}

// NewServer creates the REST server. The service and config are
// required; a nil logger falls back to the default.
func NewServer(params Params) (*Server, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("passkey service is required")
	}

	log := params.Logger
	if log == nil {
		log = logging.DefaultLogger()
	}

	version := params.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		config:  params.Config,
		service: params.Service,
		logger:  log,
		version: version,
	}
	s.router = s.setupRouter()

	s.server = &http.Server{
		Addr:         params.Config.Address(),
		Handler:      s.router,
		ReadTimeout:  params.Config.Server.ReadTimeout.Std(),
		WriteTimeout: params.Config.Server.WriteTimeout.Std(),
	}

	return s, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.recoveryMiddleware())
	r.Use(s.loggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(corsMiddleware)

	r.Get("/health", s.healthHandler)
	r.Head("/health", s.healthHandler)

	if s.config.Metrics.Enabled {
		r.Handle(s.config.Metrics.Path, promhttp.Handler())
	}

	apiHandler := passkeyhttp.NewHandler(s.service).WithLogger(s.logger.Slog())
	r.Route("/api/v1/passkey", func(r chi.Router) {
		passkeyhttp.MountChi(r, apiHandler)
	})

	// Demo page. WebAuthn only runs in secure contexts, so anything
	// other than localhost needs TLS in front of this.
	static, err := fs.Sub(staticFiles, "static")
	if err == nil {
		r.Handle("/*", http.FileServer(http.FS(static)))
	}

	return r
}

// Router returns the configured router. Tests drive it through
// httptest without binding a socket.
func (s *Server) Router() http.Handler {
	return s.router
}

// healthHandler reports the server status and user inventory.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		writeJSON(w, healthResponse{Status: "degraded", Version: s.version}, http.StatusOK)
		return
	}
	writeJSON(w, healthResponse{
		Status:  "ok",
		Version: s.version,
		Users:   len(users),
		Mode:    string(s.service.Mode()),
	}, http.StatusOK)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Users   int    `json:"users"`
	Mode    string `json:"mode,omitempty"`
}

// Start starts the server and blocks until it stops. With TLS enabled
// in the config it serves HTTPS with the configured certificate.
func (s *Server) Start() error {
	tls := s.config.Server.TLS
	if tls.Enabled {
		s.logger.Info("starting HTTPS server",
			"address", s.server.Addr,
			"rp_id", s.config.RelyingParty.ID)
		if err := s.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
		return nil
	}

	s.logger.Info("starting HTTP server",
		"address", s.server.Addr,
		"rp_id", s.config.RelyingParty.ID)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server, letting in-flight ceremonies
// finish until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
