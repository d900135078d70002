// Package scheduler runs the background jobs of the SkySense process.
//
// This file defines the task identifiers shared by the job runner, the
// gocron scheduler, and the bridge's manual trigger. Each TaskType maps to
// one Runner method.
package scheduler

import "time"

// TaskType identifies a background task.
type TaskType string

const (
	// TaskRefreshWeather repeats the active search, bypassing the cache.
	TaskRefreshWeather TaskType = "refresh_weather"
	// TaskPurgeCache sweeps expired response cache entries.
	TaskPurgeCache TaskType = "purge_cache"
)

// Valid reports whether t is a known task.
func (t TaskType) Valid() bool {
	return t == TaskRefreshWeather || t == TaskPurgeCache
}

// TaskResult summarizes one task execution.
type TaskResult struct {
	Task       TaskType      `json:"task"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Purged     int           `json:"purged,omitempty"`
	Error      string        `json:"error,omitempty"`
	Successful bool          `json:"successful"`
}
