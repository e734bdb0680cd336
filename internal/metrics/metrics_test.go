package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.RecordHTTPRequest("get", "/api/appointments", 200, 10*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/appointments", 200, 20*time.Millisecond)
	m.AppointmentEvent("created", "pending")
	m.NotificationResult("email", "skipped")
	m.LoginAttempt("success")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/appointments", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.appointments.WithLabelValues("created", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("email", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authAttempts.WithLabelValues("success")))
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.AppointmentEvent("deleted", "")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "clinic_appointments_events_total"))
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.LoginAttempt("failure")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.authAttempts.WithLabelValues("failure")))
}
