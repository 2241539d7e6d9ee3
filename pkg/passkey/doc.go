// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package passkey implements the server side of passwordless WebAuthn
// authentication: registration and authentication ceremonies bound to
// single-use challenges, with replay protection via authenticator sign
// counters.
//
// This package wraps the go-webauthn/webauthn library and provides:
//   - A challenge ledger keyed by username, with pop-once consumption
//   - Pluggable storage interfaces for users and challenges
//   - In-memory storage implementations for development/testing
//   - A runtime-switchable user-verification policy (touch_only,
//     pin_required, preferred)
//   - Optional JWT session issuance after verified ceremonies
//
// # Architecture
//
// The package is layered:
//
//  1. Service layer (Service) - ceremony options and response verification
//  2. Storage layer (UserStore, ChallengeStore) - pluggable persistence
//  3. HTTP layer (pkg/passkey/http) - handlers mountable on any router
//
// # Usage
//
// Basic usage with in-memory storage (for development):
//
//	svc, err := passkey.NewService(passkey.ServiceParams{
//	    Config: &passkey.Config{
//	        RPID:      "localhost",
//	        RPName:    "Passkey Demo",
//	        RPOrigins: []string{"http://localhost:8080"},
//	    },
//	    UserStore:      passkey.NewMemoryUserStore(),
//	    ChallengeStore: passkey.NewMemoryChallengeStore(),
//	})
//
// For production, implement UserStore with your database. Challenges are
// short-lived and single-use; the in-memory ledger is appropriate for a
// single-process deployment.
//
// # Verification Failures
//
// Responses that parse but fail verification (bad signature, origin or
// RP ID mismatch, stale or missing challenge consumed elsewhere, sign
// counter regression) are reported as data: the ceremony result carries
// Verified=false and a Reason. Errors are reserved for malformed requests
// and unknown users or credentials.
//
// Note: WebAuthn requires a secure context. Browsers only expose the
// WebAuthn API over HTTPS or on localhost.
package passkey
