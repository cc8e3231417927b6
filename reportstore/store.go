// Package reportstore keeps finished run reports so they can be fetched by id
// after the run has left the in-memory tracker.
package reportstore

import (
	"context"
	"errors"

	"trendscout/types"
)

// ErrNotFound is returned for an unknown or expired run id
var ErrNotFound = errors.New("run report not found")

// Store persists run reports and a per-session history of run ids
type Store interface {
	Save(ctx context.Context, report *types.RunReport) error
	Get(ctx context.Context, runID string) (*types.RunReport, error)
	// ListSession returns the newest run ids first
	ListSession(ctx context.Context, sessionID string, limit int) ([]string, error)
	Close() error
}
