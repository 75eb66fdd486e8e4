// Package store persists report snapshots to a target database so usage can
// be tracked across runs.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dbsmedya/wsstats/internal/report"
)

// Snapshot is the detail rows of one report, stamped with a run ID.
type Snapshot struct {
	RunID   string
	TakenAt time.Time
	Rows    []report.FlatRow
}

// NewSnapshot captures the detail rows of rep under a fresh run ID.
func NewSnapshot(rep *report.Report, takenAt time.Time) Snapshot {
	details := rep.Details()
	rows := make([]report.FlatRow, len(details))
	for i, r := range details {
		rows[i] = report.Flatten(rep.Dimensions, r)
	}
	return Snapshot{
		RunID:   uuid.NewString(),
		TakenAt: takenAt.UTC(),
		Rows:    rows,
	}
}

// Sink saves snapshots.
type Sink interface {
	Save(ctx context.Context, snap Snapshot) error
}
