// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package rest hosts the HTTP surface of the passkey server: the
// passkey ceremony API under /api/v1/passkey, a health endpoint, the
// Prometheus metrics endpoint, and the embedded demo page at /.
package rest
