// Package jobs holds the background task definitions and the Asynq worker
// bootstrap.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDrillWarmup pre-fetches common drill pages into the cache.
	TaskDrillWarmup = "drill:warmup"
	// TaskCacheBump invalidates all cached drill payloads.
	TaskCacheBump = "drill:cache_bump"
)

// DrillWarmupPayload selects which drill variants to warm. An empty list
// means all warmable variants.
type DrillWarmupPayload struct {
	Variants []string `json:"variants,omitempty"`
}

// NewDrillWarmupTask constructs an Asynq task.
func NewDrillWarmupTask(payload DrillWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDrillWarmup, data), nil
}

// NewCacheBumpTask constructs a cache invalidation task.
func NewCacheBumpTask() *asynq.Task {
	return asynq.NewTask(TaskCacheBump, nil)
}
