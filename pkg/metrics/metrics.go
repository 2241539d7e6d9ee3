// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package metrics provides Prometheus instrumentation for passkey
// ceremonies and the HTTP surface that carries them.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all passkey metrics
	Namespace = "passkey"

	// Label names
	LabelCeremony   = "ceremony"
	LabelResult     = "result"
	LabelReason     = "reason"
	LabelMode       = "mode"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Ceremony names
	CeremonyRegistration   = "registration"
	CeremonyAuthentication = "authentication"

	// Result values
	ResultVerified = "verified"
	ResultRejected = "rejected"
	ResultError    = "error"

	// Rejection reason classes
	ReasonCounterRegression = "counter_regression"
	ReasonVerification      = "verification_failed"
	ReasonChallenge         = "challenge_expired"
	ReasonNotFound          = "not_found"
)

var (
	// CeremoniesTotal counts finished ceremonies by kind and result.
	CeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_total",
			Help:      "Total number of finished ceremonies by kind and result",
		},
		[]string{LabelCeremony, LabelResult},
	)

	// CeremonyDuration tracks end-to-end handler time for finish
	// operations, dominated by signature verification.
	CeremonyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ceremony_duration_seconds",
			Help:      "Duration of ceremony finish operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{LabelCeremony},
	)

	// RejectionsTotal counts rejected ceremonies by reason class. Counter
	// regressions are the interesting series: they indicate cloned
	// authenticators or replayed assertions.
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rejections_total",
			Help:      "Total number of rejected ceremonies by reason class",
		},
		[]string{LabelCeremony, LabelReason},
	)

	// ModeChangesTotal counts user-verification mode changes by new mode.
	ModeChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mode_changes_total",
			Help:      "Total number of user verification mode changes",
		},
		[]string{LabelMode},
	)

	// UsersTotal tracks the number of stored user records.
	UsersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "users_total",
			Help:      "Number of stored user records",
		},
	)

	// CredentialsTotal tracks the number of stored credentials across all
	// users.
	CredentialsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "credentials_total",
			Help:      "Number of stored credentials across all users",
		},
	)

	// HTTPRequestsTotal tracks HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks HTTP request durations in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// ActiveRequests tracks in-flight HTTP requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordCeremony records a finished ceremony with its duration.
//
// Example:
//
//	start := time.Now()
//	result, err := svc.FinishAuthentication(ctx, username, response)
//	metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.ResultVerified, time.Since(start).Seconds())
func RecordCeremony(ceremony, result string, duration float64) {
	if !enabled.Load() {
		return
	}
	CeremoniesTotal.WithLabelValues(ceremony, result).Inc()
	CeremonyDuration.WithLabelValues(ceremony).Observe(duration)
}

// RecordRejection records a rejected ceremony by reason class.
func RecordRejection(ceremony, reason string) {
	if !enabled.Load() {
		return
	}
	RejectionsTotal.WithLabelValues(ceremony, reason).Inc()
}

// RecordModeChange records a user-verification mode change.
func RecordModeChange(mode string) {
	if !enabled.Load() {
		return
	}
	ModeChangesTotal.WithLabelValues(mode).Inc()
}

// SetUserCounts sets the stored user and credential gauges.
func SetUserCounts(users, credentials float64) {
	if !enabled.Load() {
		return
	}
	UsersTotal.Set(users)
	CredentialsTotal.Set(credentials)
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
