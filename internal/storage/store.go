package storage

import (
	"context"

	"cupart/internal/model"
)

// Store persists training runs, their validation history and the best
// policy artifact of each run.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	SaveValidationHistory(ctx context.Context, runID string, history []model.ValidationRecord) error
	GetValidationHistory(ctx context.Context, runID string) ([]model.ValidationRecord, bool, error)
	SaveBestPolicy(ctx context.Context, record model.PolicyRecord) error
	GetBestPolicy(ctx context.Context, runID, class string) (model.PolicyRecord, bool, error)
}
