package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pulseboard/internal/models"
	"pulseboard/internal/repository"
)

// RefreshService orchestrates one sync run: it creates the run row, fans the
// ingestors out concurrently, and folds their outcomes into a run status.
type RefreshService struct {
	Repo      repository.Repository
	Ingestors []Ingestor
	Logger    *zap.Logger
}

type RefreshResult struct {
	RunID  string        `json:"runId"`
	Status string        `json:"status"`
	Errors []string      `json:"errors"`
	Tasks  []TaskOutcome `json:"tasks"`
}

type runDetails struct {
	Tasks  []TaskOutcome `json:"tasks"`
	Errors []string      `json:"errors"`
}

func (s *RefreshService) Run(ctx context.Context, trigger string) (RefreshResult, error) {
	runID := uuid.NewString()
	startedAt := time.Now().UTC()

	if err := s.Repo.CreateSyncRun(ctx, &models.SyncRun{
		ID:          runID,
		TriggerKind: trigger,
		StartedAt:   startedAt,
		Status:      models.RunStatusRunning,
	}); err != nil {
		return RefreshResult{}, fmt.Errorf("create sync run: %w", err)
	}

	tasks := make([]TaskOutcome, len(s.Ingestors))
	var wg sync.WaitGroup
	for i, ingestor := range s.Ingestors {
		wg.Add(1)
		go func(idx int, ing Ingestor) {
			defer wg.Done()
			tasks[idx] = runGuarded(ctx, ing, runID)
		}(i, ingestor)
	}
	wg.Wait()

	errs := []string{}
	anyOK := false
	for _, task := range tasks {
		switch task.Status {
		case TaskOK:
			anyOK = true
		case TaskError:
			detail := task.Detail
			if detail == "" {
				detail = "unknown error"
			}
			errs = append(errs, task.Name+": "+detail)
		}
	}

	var status string
	switch {
	case len(errs) == 0:
		status = models.RunStatusSuccess
	case anyOK:
		status = models.RunStatusPartialSuccess
	default:
		status = models.RunStatusFailed
	}

	details, _ := json.Marshal(runDetails{Tasks: tasks, Errors: errs})
	if err := s.Repo.FinalizeSyncRun(ctx, runID, status, time.Now().UTC(), datatypes.JSON(details)); err != nil {
		return RefreshResult{}, fmt.Errorf("finalize sync run: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("sync run finished",
			zap.String("run_id", runID),
			zap.String("trigger", trigger),
			zap.String("status", status),
			zap.Int("errors", len(errs)),
		)
	}

	return RefreshResult{RunID: runID, Status: status, Errors: errs, Tasks: tasks}, nil
}

// runGuarded keeps a panicking ingestor from taking the run down; the panic
// becomes an error outcome like any other failure.
func runGuarded(ctx context.Context, ing Ingestor, runID string) (outcome TaskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = TaskOutcome{
				Name:   ing.Name(),
				Status: TaskError,
				Detail: fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return ing.Sync(ctx, runID)
}
