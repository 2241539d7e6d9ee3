// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsEnabled(t *testing.T) {
	// Metrics should be enabled by default
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled by default")
	}

	Disable()
	if IsEnabled() {
		t.Error("Expected metrics to be disabled after Disable()")
	}

	Enable()
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled after Enable()")
	}
}

func TestRecordCeremony(t *testing.T) {
	Enable()

	CeremoniesTotal.Reset()
	CeremonyDuration.Reset()

	RecordCeremony(CeremonyRegistration, ResultVerified, 0.05)

	if count := testutil.CollectAndCount(CeremoniesTotal); count != 1 {
		t.Errorf("Expected 1 ceremony recorded, got %d", count)
	}
	if count := testutil.CollectAndCount(CeremonyDuration); count != 1 {
		t.Errorf("Expected 1 histogram sample, got %d", count)
	}

	RecordCeremony(CeremonyAuthentication, ResultRejected, 0.01)

	if count := testutil.CollectAndCount(CeremoniesTotal); count != 2 {
		t.Errorf("Expected 2 ceremonies recorded, got %d", count)
	}

	verified := testutil.ToFloat64(CeremoniesTotal.WithLabelValues(CeremonyRegistration, ResultVerified))
	if verified != 1 {
		t.Errorf("Expected verified registration count 1, got %f", verified)
	}
}

func TestRecordCeremonyWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()

	CeremoniesTotal.Reset()

	RecordCeremony(CeremonyRegistration, ResultVerified, 0.05)

	if count := testutil.CollectAndCount(CeremoniesTotal); count != 0 {
		t.Errorf("Expected 0 ceremonies when disabled, got %d", count)
	}
}

func TestRecordRejection(t *testing.T) {
	Enable()

	RejectionsTotal.Reset()

	RecordRejection(CeremonyAuthentication, ReasonCounterRegression)
	RecordRejection(CeremonyAuthentication, ReasonCounterRegression)
	RecordRejection(CeremonyRegistration, ReasonVerification)

	regressions := testutil.ToFloat64(RejectionsTotal.WithLabelValues(CeremonyAuthentication, ReasonCounterRegression))
	if regressions != 2 {
		t.Errorf("Expected 2 counter regressions, got %f", regressions)
	}
}

func TestRecordModeChange(t *testing.T) {
	Enable()

	ModeChangesTotal.Reset()

	RecordModeChange("pin_required")
	RecordModeChange("pin_required")
	RecordModeChange("touch_only")

	pinChanges := testutil.ToFloat64(ModeChangesTotal.WithLabelValues("pin_required"))
	if pinChanges != 2 {
		t.Errorf("Expected 2 pin_required changes, got %f", pinChanges)
	}
}

func TestSetUserCounts(t *testing.T) {
	Enable()

	SetUserCounts(3, 7)

	if users := testutil.ToFloat64(UsersTotal); users != 3 {
		t.Errorf("Expected 3 users, got %f", users)
	}
	if creds := testutil.ToFloat64(CredentialsTotal); creds != 7 {
		t.Errorf("Expected 7 credentials, got %f", creds)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	Enable()

	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "200", 0.02)
	RecordHTTPRequest("POST", "401", 0.01)

	total := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "200"))
	if total != 1 {
		t.Errorf("Expected 1 POST 200 request, got %f", total)
	}
	if count := testutil.CollectAndCount(HTTPRequestDuration); count != 1 {
		t.Errorf("Expected 1 duration series, got %d", count)
	}
}
