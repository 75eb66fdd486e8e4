package aggregate

import "github.com/dbsmedya/wsstats/internal/source"

// PartitionEstimate is the planned work for one workspace.
type PartitionEstimate struct {
	Workspace source.Workspace
	Windows   int64
}

// EstimateResult holds the planned work for a scan.
type EstimateResult struct {
	Partitions []PartitionEstimate
	Windows    int64
	PageSize   int64
}

// EstimateWindows returns the most windows a scan of ws fetches when its
// watermark is accurate: the windows covering (0, MaxObjectID] plus the
// empty window that ends the scan. Returns 0 for a non-positive page size.
func EstimateWindows(ws source.Workspace, pageSize int64) int64 {
	if pageSize < 1 {
		return 0
	}
	maxID := ws.MaxObjectID
	if maxID < 0 {
		maxID = 0
	}
	n := maxID / pageSize
	if maxID%pageSize != 0 {
		n++
	}
	return n + 1
}

// Estimate plans a scan of partitions with the filters Run applies:
// deleted workspaces are dropped unless opts.IncludeDeleted is set and the
// list is capped at opts.MaxPartitions.
func Estimate(partitions []source.Workspace, opts Options) *EstimateResult {
	result := &EstimateResult{PageSize: opts.PageSize}
	for _, ws := range partitions {
		if opts.MaxPartitions > 0 && len(result.Partitions) >= opts.MaxPartitions {
			break
		}
		if ws.Deleted && !opts.IncludeDeleted {
			continue
		}
		n := EstimateWindows(ws, opts.PageSize)
		result.Partitions = append(result.Partitions, PartitionEstimate{Workspace: ws, Windows: n})
		result.Windows += n
	}
	return result
}
