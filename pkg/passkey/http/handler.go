// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/veridian-labs/passkey-server/pkg/metrics"
	"github.com/veridian-labs/passkey-server/pkg/passkey"
)

// Handler provides HTTP handlers for passkey ceremonies. The handlers can
// be mounted on any router.
type Handler struct {
	service *passkey.Service
	logger  *slog.Logger
}

// NewHandler creates a passkey HTTP handler.
func NewHandler(service *passkey.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// BeginRegistration handles POST /registration/begin
//
// Request body:
//
//	{
//	    "username": "alice@example.com",
//	    "display_name": "Alice" // optional
//	}
//
// Response: WebAuthn PublicKeyCredentialCreationOptions
func (h *Handler) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req BeginRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	options, err := h.service.BeginRegistration(r.Context(), req.Username, req.DisplayName)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, options)
}

// FinishRegistration handles POST /registration/finish
//
// Header: X-Username (the account the ceremony belongs to)
// Request body: attestation response from the authenticator
// Response: passkey.RegistrationResult; 401 when verification fails
func (h *Handler) FinishRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	username := r.Header.Get(HeaderUsername)
	if username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username header is required")
		return
	}

	response, err := protocol.ParseCredentialCreationResponseBody(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid attestation response")
		return
	}

	start := time.Now()
	result, err := h.service.FinishRegistration(r.Context(), username, response)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.ResultError, time.Since(start).Seconds())
		h.handleServiceError(w, err)
		return
	}

	if !result.Verified {
		metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.ResultRejected, time.Since(start).Seconds())
		metrics.RecordRejection(metrics.CeremonyRegistration, metrics.ReasonVerification)
		h.logger.Warn("registration verification failed",
			"username", username,
			"reason", result.Reason)
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, result.Reason)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.ResultVerified, time.Since(start).Seconds())
	h.setSessionCookie(w, result.Session)
	h.writeJSON(w, http.StatusOK, result)
}

// BeginAuthentication handles POST /authentication/begin
//
// Request body:
//
//	{
//	    "username": "alice@example.com"
//	}
//
// Response: WebAuthn PublicKeyCredentialRequestOptions. An unknown
// username and one with no registered credentials both return 404.
func (h *Handler) BeginAuthentication(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req BeginAuthenticationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	options, err := h.service.BeginAuthentication(r.Context(), req.Username)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, options)
}

// FinishAuthentication handles POST /authentication/finish
//
// Header: X-Username (the account the ceremony belongs to)
// Request body: assertion response from the authenticator
// Response: passkey.AuthenticationResult; 401 when verification fails,
// including sign counter regressions
func (h *Handler) FinishAuthentication(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	username := r.Header.Get(HeaderUsername)
	if username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username header is required")
		return
	}

	response, err := protocol.ParseCredentialRequestResponseBody(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid assertion response")
		return
	}

	start := time.Now()
	result, err := h.service.FinishAuthentication(r.Context(), username, response)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.ResultError, time.Since(start).Seconds())
		h.handleServiceError(w, err)
		return
	}

	if !result.Verified {
		metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.ResultRejected, time.Since(start).Seconds())
		metrics.RecordRejection(metrics.CeremonyAuthentication, rejectionReason(result.Reason))
		h.logger.Warn("authentication verification failed",
			"username", username,
			"credential_id", result.CredentialID,
			"reason", result.Reason)
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, result.Reason)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.ResultVerified, time.Since(start).Seconds())
	h.setSessionCookie(w, result.Session)
	h.writeJSON(w, http.StatusOK, result)
}

// rejectionReason buckets a rejection message into a metric label.
func rejectionReason(reason string) string {
	if strings.Contains(reason, "sign counter") {
		return metrics.ReasonCounterRegression
	}
	return metrics.ReasonVerification
}

// GetMode handles GET /mode
//
// Response: {"mode": "preferred", "locked": false}
func (h *Handler) GetMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	h.writeJSON(w, http.StatusOK, ModeResponse{
		Mode:   string(h.service.Mode()),
		Locked: h.service.ModeLocked(),
	})
}

// SetMode handles PUT /mode
//
// Request body: {"mode": "pin_required"}
// Response: the new mode; 403 when the mode is locked
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	if err := h.service.SetMode(passkey.Mode(req.Mode)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	metrics.RecordModeChange(req.Mode)
	h.logger.Info("user verification mode changed", "mode", req.Mode)
	h.writeJSON(w, http.StatusOK, ModeResponse{
		Mode:   string(h.service.Mode()),
		Locked: h.service.ModeLocked(),
	})
}

// ListUsers handles GET /users
//
// Response: array of user summaries sorted by username
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	summaries, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, summaries)
}

// setSessionCookie attaches the session token as an HTTP-only cookie.
func (h *Handler) setSessionCookie(w http.ResponseWriter, session *passkey.Session) {
	if session == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(session.TTLSeconds),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// handleServiceError maps service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passkey.ErrInvalidUsername):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidUsername, "invalid username")
	case errors.Is(err, passkey.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, ErrorCodeUserNotFound, "user not found")
	case errors.Is(err, passkey.ErrChallengeExpired):
		h.writeError(w, http.StatusBadRequest, ErrorCodeChallengeExpired, "challenge expired or not found")
	case errors.Is(err, passkey.ErrCredentialNotFound):
		h.writeError(w, http.StatusNotFound, ErrorCodeCredentialNotFound, "credential not found")
	case errors.Is(err, passkey.ErrPolicyLocked):
		h.writeError(w, http.StatusForbidden, ErrorCodePolicyLocked, "verification policy is locked")
	case errors.Is(err, passkey.ErrInvalidMode):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidMode, "invalid user verification mode")
	default:
		h.logger.Error("passkey service error", "error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
