// Package store persists analysis run history and the worksheet cache.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retention-cli/internal/model"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status     model.RunStatus  `json:"status,omitempty"`
	SourceKind model.SourceKind `json:"source_kind,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis runs. Run history is
// write-mostly; nothing in a stored run feeds a later analysis.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source model.RunSource) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, errText string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Sheet cache. A miss returns nil values and no error.
	GetCachedSheet(ctx context.Context, key string) ([][]string, error)
	SetCachedSheet(ctx context.Context, key string, values [][]string, ttl time.Duration) error
	DeleteCachedSheet(ctx context.Context, key string) error
	DeleteExpiredSheets(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
