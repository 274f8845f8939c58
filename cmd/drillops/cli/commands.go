package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// TriggerOptions defines available flags for the trigger command.
type TriggerOptions struct {
	Task       string
	Variants   []string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// TriggerSummary describes the JSON response for a triggered job.
type TriggerSummary struct {
	Task  string `json:"task"`
	ID    string `json:"id"`
	Queue string `json:"queue"`
	State string `json:"state"`
}

// TriggerCommand enqueues a job and prints the outcome.
func (c *JobsCLI) TriggerCommand(ctx context.Context, opts TriggerOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Task == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "trigger: task name is required")
		return 1
	}
	info, err := c.Trigger(ctx, opts.Task, opts.Variants)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "trigger: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		summary := TriggerSummary{Task: info.Type, ID: info.ID, Queue: info.Queue, State: info.State.String()}
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "trigger: encode json: %v\n", err)
			return 1
		}
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	}
	return 0
}

// InspectOptions defines available flags for the inspect command.
type InspectOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// InspectCommand prints queue statistics for the default queue.
func (c *JobsCLI) InspectCommand(ctx context.Context, opts InspectOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	stats, err := c.InspectQueue(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "inspect: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "inspect: encode json: %v\n", err)
			return 1
		}
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	}
	return 0
}
