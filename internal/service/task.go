package service

import "context"

const (
	TaskOK      = "ok"
	TaskSkipped = "skipped"
	TaskError   = "error"
)

// TaskOutcome is what an ingestor reports back to the orchestrator. Ingestors
// are failure boundaries: they never return an error, everything is folded
// into the outcome.
type TaskOutcome struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Ingestor pulls and normalizes data from one external source.
type Ingestor interface {
	Name() string
	Sync(ctx context.Context, runID string) TaskOutcome
}
