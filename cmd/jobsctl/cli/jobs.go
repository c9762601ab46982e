package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shelfwatch/shelfwatch/internal/shared"
	"github.com/shelfwatch/shelfwatch/jobs"
)

// Exit codes shared by the jobsctl commands.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitUnknownJob = 2
)

type queueInspector interface {
	jobs.QueueInspector
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for the sync queue.
type JobsCLI struct {
	enqueuer  jobs.Enqueuer
	inspector queueInspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers against the given Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client := jobs.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{
		enqueuer:  client,
		inspector: inspector,
		closers:   []io.Closer{client, inspector},
	}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	for _, closer := range c.closers {
		if closeErr := closer.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Output selects the writers and format of a command.
type Output struct {
	JSON   bool
	Stdout io.Writer
	Stderr io.Writer
}

func (o Output) withDefaults() Output {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// TriggerResult is printed after a successful enqueue.
type TriggerResult struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Queue string `json:"queue"`
}

// TriggerCommand enqueues the sync task of job.
func (c *JobsCLI) TriggerCommand(ctx context.Context, job string, out Output) int {
	out = out.withDefaults()
	if c == nil || c.enqueuer == nil {
		fmt.Fprintln(out.Stderr, "jobs trigger: client not configured")
		return ExitFailure
	}
	if job == "" {
		fmt.Fprintln(out.Stderr, "jobs trigger: job name is required")
		return ExitUnknownJob
	}
	info, err := c.enqueuer.Enqueue(ctx, job, "cli")
	if errors.Is(err, shared.ErrNotFound) {
		fmt.Fprintf(out.Stderr, "jobs trigger: unknown job %q (expected %s, %s or %s)\n", job, jobs.JobCatalog, jobs.JobMetadata, jobs.JobInventory)
		return ExitUnknownJob
	}
	if err != nil {
		fmt.Fprintf(out.Stderr, "jobs trigger: %v\n", err)
		return ExitFailure
	}
	result := TriggerResult{ID: info.ID, Type: info.Type, Queue: info.Queue}
	if out.JSON {
		return writeJSON(out, result)
	}
	fmt.Fprintf(out.Stdout, "enqueued %s as %s on %s\n", result.Type, result.ID, result.Queue)
	return ExitOK
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// StatsCommand prints the state of the default queue.
func (c *JobsCLI) StatsCommand(ctx context.Context, out Output) int {
	out = out.withDefaults()
	if c == nil || c.inspector == nil {
		fmt.Fprintln(out.Stderr, "jobs stats: inspector not configured")
		return ExitFailure
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		fmt.Fprintf(out.Stderr, "jobs stats: %v\n", err)
		return ExitFailure
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	if out.JSON {
		return writeJSON(out, stats)
	}
	tw := tabwriter.NewWriter(out.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(out.Stderr, "jobs stats: %v\n", err)
		return ExitFailure
	}
	return ExitOK
}

// ScheduledTask describes a task waiting for its process time.
type ScheduledTask struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	NextProcessAt time.Time `json:"next_process_at"`
}

// ScheduledCommand lists up to size scheduled tasks.
func (c *JobsCLI) ScheduledCommand(ctx context.Context, size int, out Output) int {
	out = out.withDefaults()
	if c == nil || c.inspector == nil {
		fmt.Fprintln(out.Stderr, "jobs scheduled: inspector not configured")
		return ExitFailure
	}
	if size <= 0 {
		size = 10
	}
	infos, err := c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
	if err != nil {
		fmt.Fprintf(out.Stderr, "jobs scheduled: %v\n", err)
		return ExitFailure
	}
	tasks := make([]ScheduledTask, 0, len(infos))
	for _, info := range infos {
		tasks = append(tasks, ScheduledTask{ID: info.ID, Type: info.Type, NextProcessAt: info.NextProcessAt.UTC()})
	}
	if out.JSON {
		return writeJSON(out, tasks)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out.Stdout, "no scheduled tasks")
		return ExitOK
	}
	for _, task := range tasks {
		fmt.Fprintf(out.Stdout, "%s\t%s\t%s\n", task.NextProcessAt.Format(time.RFC3339), task.Type, task.ID)
	}
	return ExitOK
}

func writeJSON(out Output, v any) int {
	enc := json.NewEncoder(out.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(out.Stderr, "encode output: %v\n", err)
		return ExitFailure
	}
	return ExitOK
}
