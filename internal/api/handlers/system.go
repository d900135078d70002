package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skysense/internal/core"
	"skysense/internal/external"
	"skysense/internal/scheduler"
	"skysense/internal/types"
)

// BackendProber probes the remote weather backend.
type BackendProber interface {
	Health(ctx context.Context) (*external.HealthStatus, error)
}

// TaskRunner runs background tasks on demand.
type TaskRunner interface {
	Run(ctx context.Context, task scheduler.TaskType) (scheduler.TaskResult, error)
}

// SystemHandler exposes the backend probe and manual task triggers.
type SystemHandler struct {
	backend BackendProber
	tasks   TaskRunner
	logger  *slog.Logger
}

// NewSystemHandler creates a SystemHandler. Nil dependencies disable their
// routes.
func NewSystemHandler(backend BackendProber, tasks TaskRunner, logger *slog.Logger) *SystemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemHandler{backend: backend, tasks: tasks, logger: logger}
}

// RegisterRoutes mounts the system endpoints onto the router.
func (h *SystemHandler) RegisterRoutes(r chi.Router) {
	if h.backend != nil {
		r.Get("/backend/health", h.HandleBackendHealth)
	}
	if h.tasks != nil {
		r.Post("/tasks/{task}", h.HandleRunTask)
	}
}

// HandleBackendHealth handles GET /v1/backend/health. It probes the backend
// once, without retries or caching.
func (h *SystemHandler) HandleBackendHealth(w http.ResponseWriter, r *http.Request) {
	status, err := h.backend.Health(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	core.Data(w, r, code, status)
}

// HandleRunTask handles POST /v1/tasks/{task}. Task failures are reported in
// the result body with status 200; only unknown tasks are rejected.
func (h *SystemHandler) HandleRunTask(w http.ResponseWriter, r *http.Request) {
	task := scheduler.TaskType(chi.URLParam(r, "task"))
	if !task.Valid() {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"unknown task",
			nil,
		).WithDetails(map[string]any{"task": string(task)}))
		return
	}

	res, err := h.tasks.Run(r.Context(), task)
	if err != nil {
		h.logger.WarnContext(r.Context(), "manual task failed", "task", task, "error", err)
	}
	core.Data(w, r, http.StatusOK, res)
}
