package aggregate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dbsmedya/wsstats/internal/config"
	"github.com/dbsmedya/wsstats/internal/logger"
	"github.com/dbsmedya/wsstats/internal/source"
)

// Options controls a scan.
type Options struct {
	// PageSize is the span of each id window. Must be positive.
	PageSize int64
	// LookupBatchSize is the number of latest-version lookups sent per query.
	// Values below 1 are treated as 1.
	LookupBatchSize int
	// MaxPartitions caps the number of workspaces scanned; 0 scans all.
	MaxPartitions int
	// Versions selects the version scope: config.VersionsAll or
	// config.VersionsLatest.
	Versions       string
	IncludeDeleted bool
	// Sleep is the pause between windows.
	Sleep time.Duration

	// Classify and Measure default to ClassifyRow and VersionSize.
	Classify Classifier
	Measure  Measure
}

// OptionsFromConfig builds scan options from the scan config section.
func OptionsFromConfig(cfg config.ScanConfig) Options {
	return Options{
		PageSize:        int64(cfg.PageSize),
		LookupBatchSize: cfg.LookupBatchSize,
		MaxPartitions:   cfg.MaxWorkspaces,
		Versions:        cfg.Versions,
		IncludeDeleted:  cfg.IncludeDeleted,
		Sleep:           time.Duration(cfg.SleepSeconds * float64(time.Second)),
	}
}

// Stats describes a finished scan.
type Stats struct {
	Partitions       int
	PublicPartitions int
	Windows          int64
	Rows             int64
	Objects          int64
	LookupQueries    int64
	Savers           int
	Bytes            int64
	Duration         time.Duration
}

// Result is the output of a successful scan.
type Result struct {
	Accumulator Accumulator
	Stats       Stats
}

// Aggregator pages through workspaces and totals their rows. It is not safe
// for concurrent use; one Aggregator runs one scan at a time.
type Aggregator struct {
	src    source.Source
	opts   Options
	logger *logger.Logger

	acc    Accumulator
	stats  Stats
	savers map[string]struct{}
}

// New creates an Aggregator reading from src.
func New(src source.Source, opts Options, log *logger.Logger) (*Aggregator, error) {
	if src == nil {
		return nil, fmt.Errorf("source is nil")
	}
	if opts.PageSize < 1 {
		return nil, fmt.Errorf("page size must be positive, got %d", opts.PageSize)
	}
	switch opts.Versions {
	case "":
		opts.Versions = config.VersionsAll
	case config.VersionsAll, config.VersionsLatest:
	default:
		return nil, fmt.Errorf("unknown version scope %q", opts.Versions)
	}
	if opts.LookupBatchSize < 1 {
		opts.LookupBatchSize = 1
	}
	if opts.Classify == nil {
		opts.Classify = ClassifyRow
	}
	if opts.Measure == nil {
		opts.Measure = VersionSize
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Aggregator{src: src, opts: opts, logger: log}, nil
}

// Run scans the partitions in order, one window at a time. Any error aborts
// the scan and no partial result is returned.
func (a *Aggregator) Run(ctx context.Context, partitions []source.Workspace) (*Result, error) {
	a.acc = NewAccumulator()
	a.stats = Stats{}
	a.savers = make(map[string]struct{})

	startTime := time.Now()
	a.logger.Infof("Starting scan of %d workspaces (page size %d, versions %s)",
		len(partitions), a.opts.PageSize, a.opts.Versions)

	for _, ws := range partitions {
		if a.opts.MaxPartitions > 0 && a.stats.Partitions >= a.opts.MaxPartitions {
			a.logger.Infof("Reached workspace limit of %d", a.opts.MaxPartitions)
			break
		}
		if ws.Deleted && !a.opts.IncludeDeleted {
			continue
		}
		if err := a.scanPartition(ctx, ws); err != nil {
			return nil, err
		}
		a.stats.Partitions++
		if ws.Public {
			a.stats.PublicPartitions++
		}
	}

	a.stats.Savers = len(a.savers)
	a.stats.Duration = time.Since(startTime)
	a.logger.Infof("Scan complete: %d workspaces, %d windows, %d rows, %d bytes, duration: %s",
		a.stats.Partitions, a.stats.Windows, a.stats.Rows, a.stats.Bytes, a.stats.Duration)

	return &Result{Accumulator: a.acc, Stats: a.stats}, nil
}

// scanPartition walks (low, low+page] windows from 0. It stops on the first
// empty window at or past the watermark; empty windows below it are gaps.
func (a *Aggregator) scanPartition(ctx context.Context, ws source.Workspace) error {
	wsLogger := a.logger.WithWorkspace(ws.ID)
	wsLogger.Infof("Processing workspace %d, %d objects", ws.ID, ws.MaxObjectID)

	startTime := time.Now()
	var rows int64
	low := int64(0)
	for {
		if err := ctx.Err(); err != nil {
			wsLogger.Warnf("Scan interrupted: %v", err)
			return fmt.Errorf("scan of workspace %d interrupted: %w", ws.ID, err)
		}

		w := nextWindow(low, a.opts.PageSize)
		fetched, n, err := a.scanWindow(ctx, ws, w, wsLogger.WithWindow(w.Low, w.High))
		if err != nil {
			return err
		}
		rows += n
		low = w.High

		if fetched == 0 && low >= ws.MaxObjectID {
			break
		}
		if low == math.MaxInt64 {
			break
		}

		if a.opts.Sleep > 0 {
			wsLogger.Debugf("Sleeping for %v before next window", a.opts.Sleep)
			select {
			case <-ctx.Done():
				wsLogger.Warnf("Scan interrupted during sleep: %v", ctx.Err())
				return fmt.Errorf("scan of workspace %d interrupted: %w", ws.ID, ctx.Err())
			case <-time.After(a.opts.Sleep):
			}
		}
	}

	wsLogger.Infof("Workspace %d complete: %d rows, duration: %s", ws.ID, rows, time.Since(startTime))
	return nil
}

// nextWindow returns (low, low+size], clamped to the largest object id.
func nextWindow(low, size int64) source.Window {
	if low > math.MaxInt64-size {
		return source.Window{Low: low, High: math.MaxInt64}
	}
	return source.Window{Low: low, High: low + size}
}

// scanWindow fetches one window of objects, joins their versions and adds
// the rows. It returns the number of objects fetched and rows added.
func (a *Aggregator) scanWindow(ctx context.Context, ws source.Workspace, w source.Window, log *logger.Logger) (int, int64, error) {
	objStart := time.Now()
	objects, err := a.src.Objects(ctx, ws.ID, w)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch objects of workspace %d in %s: %w", ws.ID, w, err)
	}
	objTime := time.Since(objStart)
	a.stats.Windows++

	if len(objects) == 0 {
		log.Debugf("Window %s empty", w)
		return 0, 0, nil
	}
	a.stats.Objects += int64(len(objects))

	verStart := time.Now()
	var rows int64
	if a.opts.Versions == config.VersionsLatest {
		rows, err = a.joinLatest(ctx, ws, objects)
	} else {
		rows, err = a.joinAll(ctx, ws, w, objects)
	}
	if err != nil {
		return 0, 0, err
	}

	log.WithFields(map[string]interface{}{
		"objects":   len(objects),
		"rows":      rows,
		"obj_query": objTime.String(),
		"ver_query": time.Since(verStart).String(),
	}).Infof("Processed objects %d - %d", w.Low+1, w.High)

	return len(objects), rows, nil
}

// joinAll counts every version of the window's objects, fetched with one
// range query.
func (a *Aggregator) joinAll(ctx context.Context, ws source.Workspace, w source.Window, objects []source.Object) (int64, error) {
	versions, err := a.src.VersionsInWindow(ctx, ws.ID, w)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch versions of workspace %d in %s: %w", ws.ID, w, err)
	}
	a.stats.LookupQueries++

	byID := make(map[int64]source.Object, len(objects))
	for _, o := range objects {
		byID[o.ID] = o
	}

	seen := make(map[int64]bool, len(objects))
	var rows int64
	for _, v := range versions {
		o, ok := byID[v.ObjectID]
		if !ok {
			return 0, &InconsistencyError{
				Workspace: ws.ID,
				ObjectID:  v.ObjectID,
				Version:   v.Version,
				Reason:    "version has no object record",
			}
		}
		seen[o.ID] = true
		if o.Deleted && !a.opts.IncludeDeleted {
			continue
		}
		if err := a.add(Row{Workspace: ws, Object: o, Version: v}); err != nil {
			return 0, err
		}
		rows++
	}

	for _, o := range objects {
		if !seen[o.ID] {
			return 0, &InconsistencyError{
				Workspace: ws.ID,
				ObjectID:  o.ID,
				Reason:    "object has no version records",
			}
		}
	}
	return rows, nil
}

// joinLatest counts the latest version of each object, looked up in batches
// of LookupBatchSize.
func (a *Aggregator) joinLatest(ctx context.Context, ws source.Workspace, objects []source.Object) (int64, error) {
	wanted := make([]source.Object, 0, len(objects))
	for _, o := range objects {
		if o.Deleted && !a.opts.IncludeDeleted {
			continue
		}
		wanted = append(wanted, o)
	}

	var rows int64
	for start := 0; start < len(wanted); start += a.opts.LookupBatchSize {
		end := start + a.opts.LookupBatchSize
		if end > len(wanted) {
			end = len(wanted)
		}
		chunk := wanted[start:end]

		refs := make([]source.VersionRef, len(chunk))
		for i, o := range chunk {
			refs[i] = source.VersionRef{ObjectID: o.ID, Version: o.LatestVersion}
		}

		versions, err := a.src.LatestVersions(ctx, ws.ID, refs)
		if err != nil {
			return 0, fmt.Errorf("failed to look up versions of workspace %d objects %d - %d: %w",
				ws.ID, chunk[0].ID, chunk[len(chunk)-1].ID, err)
		}
		a.stats.LookupQueries++

		found := make(map[source.VersionRef]source.Version, len(versions))
		for _, v := range versions {
			found[source.VersionRef{ObjectID: v.ObjectID, Version: v.Version}] = v
		}

		for i, o := range chunk {
			v, ok := found[refs[i]]
			if !ok {
				return 0, &InconsistencyError{
					Workspace: ws.ID,
					ObjectID:  o.ID,
					Version:   o.LatestVersion,
					Reason:    "latest version record not found",
				}
			}
			if err := a.add(Row{Workspace: ws, Object: o, Version: v}); err != nil {
				return 0, err
			}
			rows++
		}
	}
	return rows, nil
}

func (a *Aggregator) add(r Row) error {
	key, err := a.opts.Classify(r)
	if err != nil {
		return err
	}
	size := a.opts.Measure(r)
	if size < 0 {
		return &InconsistencyError{
			Workspace: r.Workspace.ID,
			ObjectID:  r.Object.ID,
			Version:   r.Version.Version,
			Reason:    fmt.Sprintf("negative size %d", size),
		}
	}

	a.acc.Add(key, 1, size)
	a.stats.Rows++
	a.stats.Bytes += size
	if r.Version.SavedBy != "" {
		a.savers[r.Version.SavedBy] = struct{}{}
	}
	return nil
}
