// Package source reads the workspace service's collections for reporting.
//
// Four collections are touched: workspaces (one document per workspace with
// its owner, deleted flag and object-count watermark), the ACLs (a user of
// "*" marks a workspace public), objects (keyed by workspace and a per-
// workspace integer id), and object versions (type, saver and size of each
// saved version). All access is read-only.
package source

import (
	"context"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// PublicUser is the ACL user that grants world read access.
const PublicUser = "*"

// Workspace is one partition of the scan.
type Workspace struct {
	ID      int64
	Owner   string
	Deleted bool
	Public  bool
	// MaxObjectID is the workspace's object counter. Object ids are assigned
	// from it, so it bounds the id range; it can be stale.
	MaxObjectID int64
}

// Window is the half-open id range (Low, High].
type Window struct {
	Low  int64
	High int64
}

// Contains reports whether id lies in the window.
func (w Window) Contains(id int64) bool {
	return id > w.Low && id <= w.High
}

func (w Window) String() string {
	return fmt.Sprintf("(%d, %d]", w.Low, w.High)
}

// Object is a primary row: one object of a workspace.
type Object struct {
	Workspace     int64
	ID            int64
	LatestVersion int64
	Deleted       bool
}

// Version is a secondary row: one saved version of an object.
type Version struct {
	Workspace int64
	ObjectID  int64
	Version   int64
	Type      string // "Name-Version"
	SavedBy   string
	Size      int64
}

// VersionRef addresses one version of an object within a workspace.
type VersionRef struct {
	ObjectID int64
	Version  int64
}

// Source is the read interface the aggregator scans through.
type Source interface {
	// Workspaces returns all workspaces ordered by id, with Public set from
	// the ACLs. Deleted workspaces are omitted unless includeDeleted is set.
	Workspaces(ctx context.Context, includeDeleted bool) ([]Workspace, error)

	// Objects returns the workspace's objects with ids in w, ordered by id.
	Objects(ctx context.Context, ws int64, w Window) ([]Object, error)

	// VersionsInWindow returns every version of the objects with ids in w,
	// ordered by object id then version.
	VersionsInWindow(ctx context.Context, ws int64, w Window) ([]Version, error)

	// LatestVersions looks up the given versions in one query. Refs with no
	// matching record are simply absent from the result.
	LatestVersions(ctx context.Context, ws int64, refs []VersionRef) ([]Version, error)
}

// mergePublic marks the workspaces named in publicIDs as public and returns
// them in their original order. ACLs for workspaces not in the list (deleted
// and filtered out) are ignored.
func mergePublic(workspaces []Workspace, publicIDs []int64) []Workspace {
	registry := orderedmap.NewOrderedMap[int64, *Workspace]()
	for i := range workspaces {
		registry.Set(workspaces[i].ID, &workspaces[i])
	}

	for _, id := range publicIDs {
		if ws, ok := registry.Get(id); ok {
			ws.Public = true
		}
	}

	out := make([]Workspace, 0, registry.Len())
	for el := registry.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value)
	}
	return out
}
