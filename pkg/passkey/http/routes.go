// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountChi mounts the passkey routes on a chi router.
//
// Example:
//
//	handler := passkeyhttp.NewHandler(svc)
//	r.Route("/api/v1/passkey", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
func MountChi(r chi.Router, h *Handler) {
	r.Post("/registration/begin", h.BeginRegistration)
	r.Post("/registration/finish", h.FinishRegistration)
	r.Post("/authentication/begin", h.BeginAuthentication)
	r.Post("/authentication/finish", h.FinishAuthentication)
	r.Get("/mode", h.GetMode)
	r.Put("/mode", h.SetMode)
	r.Get("/users", h.ListUsers)
}

// MountStdlib mounts the passkey routes on a stdlib http.ServeMux. The
// prefix should not include a trailing slash. Method checking is done in
// the handlers.
//
// Example:
//
//	handler := passkeyhttp.NewHandler(svc)
//	passkeyhttp.MountStdlib(mux, "/api/v1/passkey", handler)
func MountStdlib(mux *http.ServeMux, prefix string, h *Handler) {
	mux.HandleFunc(prefix+"/registration/begin", h.BeginRegistration)
	mux.HandleFunc(prefix+"/registration/finish", h.FinishRegistration)
	mux.HandleFunc(prefix+"/authentication/begin", h.BeginAuthentication)
	mux.HandleFunc(prefix+"/authentication/finish", h.FinishAuthentication)
	mux.HandleFunc(prefix+"/mode", h.modeFunc())
	mux.HandleFunc(prefix+"/users", h.ListUsers)
}

// modeFunc dispatches GET and PUT /mode for routers without method
// patterns.
func (h *Handler) modeFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetMode(w, r)
		case http.MethodPut:
			h.SetMode(w, r)
		default:
			h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		}
	}
}

// RouteEntry represents a single route with its method, path, and handler.
type RouteEntry struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Routes returns a slice of route entries for manual mounting on
// frameworks not directly supported.
func (h *Handler) Routes() []RouteEntry {
	return []RouteEntry{
		{Method: "POST", Path: "/registration/begin", Handler: h.BeginRegistration},
		{Method: "POST", Path: "/registration/finish", Handler: h.FinishRegistration},
		{Method: "POST", Path: "/authentication/begin", Handler: h.BeginAuthentication},
		{Method: "POST", Path: "/authentication/finish", Handler: h.FinishAuthentication},
		{Method: "GET", Path: "/mode", Handler: h.GetMode},
		{Method: "PUT", Path: "/mode", Handler: h.SetMode},
		{Method: "GET", Path: "/users", Handler: h.ListUsers},
	}
}
