package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skysense/internal/config"
)

func serveHealth(t *testing.T, probes ...HealthProbe) (*httptest.ResponseRecorder, healthResponse) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Build.Version = "1.2.3"
	srv := newTestServer(t, cfg)
	srv.HealthProbes = probes

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	return rec, resp
}

func okProbe(name string) HealthProbe {
	return ProbeFunc{ProbeName: name, Fn: func(context.Context) error { return nil }}
}

func TestHandleHealth_NoProbes(t *testing.T) {
	rec, resp := serveHealth(t)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if resp.Status != "healthy" || resp.Version != "1.2.3" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandleHealth_AllHealthy(t *testing.T) {
	rec, resp := serveHealth(t, okProbe("backend"), okProbe("storage"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, name := range []string{"backend", "storage"} {
		if resp.Components[name].Status != "healthy" {
			t.Errorf("%s: expected healthy, got %+v", name, resp.Components[name])
		}
	}
}

func TestHandleHealth_ProbeFailure(t *testing.T) {
	failing := ProbeFunc{ProbeName: "storage", Fn: func(context.Context) error {
		return errors.New("database is locked")
	}}

	rec, resp := serveHealth(t, okProbe("backend"), failing)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %q", resp.Status)
	}
	if got := resp.Components["storage"]; got.Status != "unhealthy" || got.Message != "database is locked" {
		t.Errorf("unexpected storage component %+v", got)
	}
	if resp.Components["backend"].Status != "healthy" {
		t.Error("healthy probe should be reported healthy")
	}
}

func TestHandleHealth_Panic(t *testing.T) {
	panicking := ProbeFunc{ProbeName: "backend", Fn: func(context.Context) error {
		panic("nil breaker")
	}}

	rec, resp := serveHealth(t, panicking)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if resp.Components["backend"].Status != "unhealthy" {
		t.Errorf("expected panicking probe to be unhealthy, got %+v", resp.Components["backend"])
	}
}

func TestHandleHealth_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the health check deadline")
	}
	block := make(chan struct{})
	defer close(block)

	stuck := ProbeFunc{ProbeName: "backend", Fn: func(context.Context) error {
		<-block
		return nil
	}}

	start := time.Now()
	rec, resp := serveHealth(t, stuck)
	if elapsed := time.Since(start); elapsed > healthCheckTimeout+time.Second {
		t.Errorf("health check took %v, expected about %v", elapsed, healthCheckTimeout)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if got := resp.Components["backend"].Message; got != "health check timed out" {
		t.Errorf("expected timeout message, got %q", got)
	}
}
