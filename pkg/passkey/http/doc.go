// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package http provides composable HTTP handlers for passkey ceremonies.
//
// The handlers are router-agnostic and can be mounted on chi, a stdlib
// ServeMux, or any framework via Routes():
//
//	svc, _ := passkey.NewService(params)
//	handler := passkeyhttp.NewHandler(svc)
//
//	r := chi.NewRouter()
//	r.Route("/api/v1/passkey", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
//
// Ceremony begin endpoints take a JSON body naming the account. Finish
// endpoints take the raw authenticator response as the body and the
// account in the X-Username header. Verification failures return 401 with
// a machine-readable error code; request-shape failures map to 400/404.
package http
