package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
)

// Listing limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// RunStore records finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, result *pipeline.Result) error
	// GetRun returns nil without error when no run matches.
	GetRun(ctx context.Context, runID uuid.UUID) (*pipeline.Result, error)
	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]pipeline.Result, error)
}

var (
	_ RunStore = (*DB)(nil)
	_ RunStore = (*MemoryStore)(nil)
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
