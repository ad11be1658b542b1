package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alchemorsel/ingrediate/pkg/healthcheck"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		allowDegraded bool
		want          int
	}{
		{name: "healthy", body: `{"status":"healthy","version":"1.0.0"}`, want: exitCodeSuccess},
		{name: "degraded allowed", body: `{"status":"degraded"}`, allowDegraded: true, want: exitCodeSuccess},
		{name: "degraded strict", body: `{"status":"degraded"}`, want: exitCodeFailure},
		{name: "unhealthy", body: `{"status":"unhealthy"}`, allowDegraded: true, want: exitCodeFailure},
		{name: "garbage", body: `not json`, want: exitCodeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			code := run(Options{
				URL:          srv.URL,
				Timeout:      time.Second,
				AllowDegrade: tt.allowDegraded,
			})

			assert.Equal(t, tt.want, code)
		})
	}
}

func TestFetchDecodesChecks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"degraded","checks":[{"name":"translation","status":"degraded","duration_ms":12}]}`))
	}))
	defer srv.Close()

	resp, err := fetch(srv.Client(), srv.URL)

	assert.NoError(t, err)
	assert.Equal(t, healthcheck.StatusDegraded, resp.Status)
	assert.Equal(t, []checkResult{{Name: "translation", Status: healthcheck.StatusDegraded, Duration: 12}}, resp.Checks)
}
