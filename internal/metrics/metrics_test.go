// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest("POST", "/auth/login", 200, 20*time.Millisecond)
	m.ObserveRequest("POST", "/auth/login", 200, 30*time.Millisecond)
	m.ObserveRequest("GET", "/users/me", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/auth/login", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/users/me", "error")))
}

func TestTrackInFlight(t *testing.T) {
	m := New()

	done := m.TrackInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsInFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.RecordMessage("USER", "sent")
	m.RecordLookup("applied")
	m.TrackInFlight()()
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordLookup("stale")
	m.RecordMessage("ASSISTANT", "received")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `assist_search_lookups_total{outcome="stale"} 1`)
	assert.Contains(t, body, `assist_chat_messages_total{emitter="ASSISTANT",outcome="received"} 1`)
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordLookup("applied")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SearchLookupsTotal.WithLabelValues("applied")))
}
