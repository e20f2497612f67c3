// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/planner"
)

func TestParseBasicAuthUsers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{name: "empty", input: "", want: map[string]string{}},
		{name: "single", input: "prom:secret", want: map[string]string{"prom": "secret"}},
		{name: "several with spaces", input: " a:1 , b:2 ", want: map[string]string{"a": "1", "b": "2"}},
		{name: "malformed skipped", input: "a:1,nocolon,:nouser", want: map[string]string{"a": "1"}},
		{name: "colon in password", input: "a:x:y", want: map[string]string{"a": "x:y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseBasicAuthUsers(tt.input))
		})
	}
}

func TestNewMetricsServer(t *testing.T) {
	t.Parallel()

	manager := NewManager(nil)
	server := NewMetricsServer(manager, "0.0.0.0", 9074, "prom:secret")

	require.NotNil(t, server)
	assert.Equal(t, "0.0.0.0:9074", server.server.Addr)
	assert.Len(t, server.basicAuthUsers, 1)
	assert.Same(t, manager, server.manager)
}

func TestMetricsServer_ServesPlannerMetrics(t *testing.T) {
	t.Parallel()

	manager := NewManager(nil)
	manager.Planner.RecordOutcome(planner.Outcome{
		Decision: models.Decision{Reason: models.ReasonNoCandidates},
	})
	server := NewMetricsServer(manager, "localhost", 9074, "")

	rec := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	body := rec.Body.String()
	assert.Contains(t, body, `soulseekarr_planner_decisions_total{reason="no_candidates"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsServer_BasicAuth(t *testing.T) {
	t.Parallel()

	server := NewMetricsServer(NewManager(nil), "localhost", 9074, "prom:secret")

	tests := []struct {
		name     string
		user     string
		pass     string
		wantCode int
	}{
		{name: "no credentials", wantCode: http.StatusUnauthorized},
		{name: "wrong password", user: "prom", pass: "nope", wantCode: http.StatusUnauthorized},
		{name: "unknown user", user: "grafana", pass: "secret", wantCode: http.StatusUnauthorized},
		{name: "valid", user: "prom", pass: "secret", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			server.server.Handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `realm="metrics"`)
			}
		})
	}
}

func TestMetricsServer_UnknownPath(t *testing.T) {
	t.Parallel()

	server := NewMetricsServer(NewManager(nil), "localhost", 9074, "")

	rec := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsServer_Shutdown(t *testing.T) {
	server := NewMetricsServer(NewManager(nil), "127.0.0.1", 0, "")

	errs := make(chan error, 1)
	go func() { errs <- server.ListenAndServe() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	assert.NoError(t, <-errs)
}
