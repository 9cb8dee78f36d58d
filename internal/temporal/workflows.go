// Package temporal runs document ingestion as a Temporal workflow, so a
// multi-source rebuild survives worker restarts and failed sources retry
// independently of the rest.
package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the queue ingestion workflows and workers share.
const TaskQueue = "fundfaq-ingest"

// IngestionInput holds the workflow parameters.
type IngestionInput struct {
	Sources   []string
	Reset     bool
	Dimension int
}

// IngestionOutput holds the workflow result.
type IngestionOutput struct {
	Sources       int
	FailedSources []string
	Chunks        int
}

// IngestionWorkflow downloads and chunks every source, then indexes the
// combined chunk set in one activity. A source that keeps failing after
// its retries is skipped, not fatal.
func IngestionWorkflow(ctx workflow.Context, input IngestionInput) (*IngestionOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	if input.Reset {
		if err := workflow.ExecuteActivity(ctx, ResetIndexActivity, input.Dimension).Get(ctx, nil); err != nil {
			return nil, fmt.Errorf("reset index: %w", err)
		}
	}

	if err := workflow.ExecuteActivity(ctx, BeginIngestActivity).Get(ctx, nil); err != nil {
		return nil, fmt.Errorf("begin ingest: %w", err)
	}

	output := &IngestionOutput{Sources: len(input.Sources)}
	var chunkSets []string
	for _, url := range input.Sources {
		var result PrepareResult
		if err := workflow.ExecuteActivity(ctx, PrepareSourceActivity, url).Get(ctx, &result); err != nil {
			workflow.GetLogger(ctx).Warn("source failed, skipping", "url", url, "error", err)
			output.FailedSources = append(output.FailedSources, url)
			continue
		}
		chunkSets = append(chunkSets, result.ChunksJSON)
	}

	var indexed IndexResult
	if err := workflow.ExecuteActivity(ctx, IndexChunksActivity, chunkSets).Get(ctx, &indexed); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	output.Chunks = indexed.Chunks

	return output, nil
}
