package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"skysense/internal/scheduler"
	"skysense/internal/testutil"
)

type mockTaskRunner struct {
	calls []scheduler.TaskType
	err   error
}

func (m *mockTaskRunner) Run(_ context.Context, task scheduler.TaskType) (scheduler.TaskResult, error) {
	m.calls = append(m.calls, task)
	res := scheduler.TaskResult{Task: task, StartedAt: time.Now(), Successful: m.err == nil}
	if m.err != nil {
		res.Error = m.err.Error()
	}
	return res, m.err
}

func makeSystemRouter(h *SystemHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func TestHandleBackendHealth(t *testing.T) {
	backend := testutil.NewBackend(t)
	h := NewSystemHandler(newTestWeatherClient(t, backend), nil, quietLogger())

	rec := serve(makeSystemRouter(h), http.MethodGet, "/v1/backend/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if backend.CallsTo("/health") != 1 {
		t.Errorf("expected one health call, got %d", backend.CallsTo("/health"))
	}
}

func TestHandleBackendHealth_Down(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OnHealth(testutil.Status(http.StatusServiceUnavailable))
	h := NewSystemHandler(newTestWeatherClient(t, backend), nil, quietLogger())

	rec := serve(makeSystemRouter(h), http.MethodGet, "/v1/backend/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if backend.CallsTo("/health") != 1 {
		t.Errorf("health probe must not retry, got %d calls", backend.CallsTo("/health"))
	}
}

func TestHandleRunTask(t *testing.T) {
	runner := &mockTaskRunner{}
	h := NewSystemHandler(nil, runner, quietLogger())
	router := makeSystemRouter(h)

	rec := serve(router, http.MethodPost, "/v1/tasks/purge_cache", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var env struct {
		Data scheduler.TaskResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if env.Data.Task != scheduler.TaskPurgeCache || !env.Data.Successful {
		t.Errorf("unexpected result %+v", env.Data)
	}
	if len(runner.calls) != 1 || runner.calls[0] != scheduler.TaskPurgeCache {
		t.Errorf("expected one purge_cache run, got %v", runner.calls)
	}
}

func TestHandleRunTask_Failure(t *testing.T) {
	runner := &mockTaskRunner{err: errors.New("backend down")}
	h := NewSystemHandler(nil, runner, quietLogger())

	rec := serve(makeSystemRouter(h), http.MethodPost, "/v1/tasks/refresh_weather", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var env struct {
		Data scheduler.TaskResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if env.Data.Successful || env.Data.Error != "backend down" {
		t.Errorf("expected failed result, got %+v", env.Data)
	}
}

func TestHandleRunTask_Unknown(t *testing.T) {
	runner := &mockTaskRunner{}
	h := NewSystemHandler(nil, runner, quietLogger())

	rec := serve(makeSystemRouter(h), http.MethodPost, "/v1/tasks/reboot", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if len(runner.calls) != 0 {
		t.Errorf("unknown task must not run, got %v", runner.calls)
	}
}

func TestSystemHandler_NilDependenciesDisableRoutes(t *testing.T) {
	h := NewSystemHandler(nil, nil, quietLogger())
	router := makeSystemRouter(h)

	if rec := serve(router, http.MethodGet, "/v1/backend/health", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for disabled health route, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/v1/tasks/purge_cache", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for disabled task route, got %d", rec.Code)
	}
}
