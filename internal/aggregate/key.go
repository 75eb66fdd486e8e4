// Package aggregate scans workspaces window by window and totals object
// counts and bytes under a composite key.
package aggregate

import (
	"strings"

	"github.com/dbsmedya/wsstats/internal/source"
)

// Key is the set of dimensions a row is totalled under.
type Key struct {
	Owner       string
	Public      bool
	Deleted     bool
	TypeName    string
	TypeVersion string
}

// Row is one joined record: a version of an object in a workspace.
type Row struct {
	Workspace source.Workspace
	Object    source.Object
	Version   source.Version
}

// Classifier maps a row to its key.
type Classifier func(Row) (Key, error)

// Measure returns the size a row contributes.
type Measure func(Row) int64

// ParseType splits a type string of the form "Name-Version". Both parts must
// be non-empty and the version may not contain another separator.
func ParseType(s string) (name, version string, ok bool) {
	name, version, found := strings.Cut(s, "-")
	if !found || name == "" || version == "" || strings.Contains(version, "-") {
		return "", "", false
	}
	return name, version, true
}

// ClassifyRow keys a row by its workspace owner and visibility, the object's
// deleted flag and the version's type.
func ClassifyRow(r Row) (Key, error) {
	name, ver, ok := ParseType(r.Version.Type)
	if !ok {
		return Key{}, &ClassificationError{
			Workspace: r.Workspace.ID,
			ObjectID:  r.Object.ID,
			Type:      r.Version.Type,
		}
	}
	return Key{
		Owner:       r.Workspace.Owner,
		Public:      r.Workspace.Public,
		Deleted:     r.Object.Deleted,
		TypeName:    name,
		TypeVersion: ver,
	}, nil
}

// VersionSize measures a row by the stored size of its version.
func VersionSize(r Row) int64 {
	return r.Version.Size
}
