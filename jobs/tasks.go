package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shelfwatch/shelfwatch/internal/shared"
)

const (
	// QueueDefault is the queue every sync task runs on.
	QueueDefault = "default"

	// TaskCatalogSync harvests catalog records.
	TaskCatalogSync = "catalog:sync"
	// TaskMetadataSync enriches books from Goodreads.
	TaskMetadataSync = "metadata:sync"
	// TaskInventorySync samples availability and infers checkouts.
	TaskInventorySync = "inventory:sync"
)

// Job names used for run locks, metrics and CLI arguments.
const (
	JobCatalog   = "catalog"
	JobMetadata  = "metadata"
	JobInventory = "inventory"
)

var taskByJob = map[string]string{
	JobCatalog:   TaskCatalogSync,
	JobMetadata:  TaskMetadataSync,
	JobInventory: TaskInventorySync,
}

// SyncPayload records who asked for a run. ScheduledFor is set for one-off
// enqueues only; a cron entry reuses one task for every firing.
type SyncPayload struct {
	TriggeredBy  string    `json:"triggered_by"`
	ScheduledFor time.Time `json:"scheduled_for,omitzero"`
}

// TaskType resolves a job name ("inventory") or task type ("inventory:sync")
// to its task type.
func TaskType(name string) (string, error) {
	if task, ok := taskByJob[name]; ok {
		return task, nil
	}
	for _, task := range taskByJob {
		if task == name {
			return task, nil
		}
	}
	return "", fmt.Errorf("jobs: %q: %w", name, shared.ErrNotFound)
}

// NewSyncTask constructs the task for a job. Sync tasks are never retried
// by the queue; the next scheduled run picks up where this one failed.
func NewSyncTask(name, triggeredBy string, at time.Time) (*asynq.Task, error) {
	taskType, err := TaskType(name)
	if err != nil {
		return nil, err
	}
	payload := SyncPayload{TriggeredBy: triggeredBy}
	if !at.IsZero() {
		payload.ScheduledFor = at.UTC()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault), asynq.MaxRetry(0)), nil
}

// NewCronTask constructs the task registered with the scheduler for a job.
// The payload carries no timestamp since the same task is enqueued on every
// firing.
func NewCronTask(name string) (*asynq.Task, error) {
	return NewSyncTask(name, "cron", time.Time{})
}

func decodePayload(task *asynq.Task) (SyncPayload, error) {
	var payload SyncPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("jobs: decode %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}
