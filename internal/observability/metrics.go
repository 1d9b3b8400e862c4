// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Login results recorded by RecordLogin.
const (
	LoginSuccess = "success"
	LoginInvalid = "invalid"
	LoginError   = "error"
)

// Metrics contains the Prometheus metrics for wpikzbior.
type Metrics struct {
	AuthOutcomesTotal    *prometheus.CounterVec
	LoginsTotal          *prometheus.CounterVec
	SessionsCreatedTotal prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the wpikzbior metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wpikzbior_auth_outcomes_total",
				Help: "Total number of request authentications by outcome",
			},
			[]string{"outcome"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wpikzbior_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wpikzbior_sessions_created_total",
				Help: "Total number of sessions issued",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wpikzbior_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}

	reg.MustRegister(m.AuthOutcomesTotal, m.LoginsTotal, m.SessionsCreatedTotal, m.HTTPRequestsTotal)
	return m
}

// RecordAuthOutcome counts one authentication outcome. Nil-safe.
func (m *Metrics) RecordAuthOutcome(outcome string) {
	if m == nil {
		return
	}
	m.AuthOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordLogin counts one login attempt. A successful login also counts a
// created session.
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
	if result == LoginSuccess {
		m.SessionsCreatedTotal.Inc()
	}
}

// RecordHTTPRequest counts one served request. route is the matched route
// pattern, not the raw path.
func (m *Metrics) RecordHTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
