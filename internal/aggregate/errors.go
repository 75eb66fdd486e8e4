package aggregate

import "fmt"

// InconsistencyError reports a row whose join partner is missing: a version
// with no object record, an object with no versions, or a missing latest
// version.
type InconsistencyError struct {
	Workspace int64
	ObjectID  int64
	Version   int64
	Reason    string
}

func (e *InconsistencyError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("data inconsistency in workspace %d, object %d version %d: %s",
			e.Workspace, e.ObjectID, e.Version, e.Reason)
	}
	return fmt.Sprintf("data inconsistency in workspace %d, object %d: %s",
		e.Workspace, e.ObjectID, e.Reason)
}

// ClassificationError reports a type string that cannot be split into name
// and version.
type ClassificationError struct {
	Workspace int64
	ObjectID  int64
	Type      string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("malformed type %q in workspace %d, object %d: want Name-Version",
		e.Type, e.Workspace, e.ObjectID)
}
