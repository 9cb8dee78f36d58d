package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a Temporal worker on the ingestion queue.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	if taskQueue == "" {
		taskQueue = TaskQueue
	}
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(IngestionWorkflow)
	w.RegisterActivity(ResetIndexActivity)
	w.RegisterActivity(BeginIngestActivity)
	w.RegisterActivity(PrepareSourceActivity)
	w.RegisterActivity(IndexChunksActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}
