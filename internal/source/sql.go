package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/wsstats/internal/config"
	"github.com/dbsmedya/wsstats/internal/sqlutil"
)

// SQLSource reads workspace tables through database/sql. Tables carry the
// same names and fields as the document collections.
type SQLSource struct {
	db         *sql.DB
	workspaces string
	acls       string
	objects    string
	versions   string
}

var (
	workspaceColumns = sqlutil.ColumnList("ws", "owner", "numObj", "del")
	objectColumns    = sqlutil.ColumnList("ws", "id", "numver", "del")
	versionColumns   = sqlutil.ColumnList("ws", "id", "ver", "type", "savedby", "size")
)

// NewSQLSource creates a source over db using the configured table names.
func NewSQLSource(db *sql.DB, cols config.CollectionsConfig) (*SQLSource, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	s := &SQLSource{db: db}
	for _, t := range []struct {
		dst  *string
		name string
	}{
		{&s.workspaces, cols.Workspaces},
		{&s.acls, cols.ACLs},
		{&s.objects, cols.Objects},
		{&s.versions, cols.Versions},
	} {
		quoted, err := sqlutil.QuoteIdentifierSafe(t.name)
		if err != nil {
			return nil, fmt.Errorf("bad table name: %w", err)
		}
		*t.dst = quoted
	}
	return s, nil
}

// Workspaces implements Source.
func (s *SQLSource) Workspaces(ctx context.Context, includeDeleted bool) ([]Workspace, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", workspaceColumns, s.workspaces)
	var args []interface{}
	if !includeDeleted {
		query += " WHERE `del` = ?"
		args = append(args, false)
	}
	query += " ORDER BY `ws` ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.workspaces, err)
	}
	defer rows.Close()

	var workspaces []Workspace
	for rows.Next() {
		var ws Workspace
		if err := rows.Scan(&ws.ID, &ws.Owner, &ws.MaxObjectID, &ws.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspaces: %w", err)
	}

	public, err := s.publicWorkspaceIDs(ctx)
	if err != nil {
		return nil, err
	}
	return mergePublic(workspaces, public), nil
}

func (s *SQLSource) publicWorkspaceIDs(ctx context.Context) ([]int64, error) {
	query := fmt.Sprintf("SELECT `id` FROM %s WHERE `user` = ?", s.acls)
	rows, err := s.db.QueryContext(ctx, query, PublicUser)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.acls, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ACL: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ACLs: %w", err)
	}
	return ids, nil
}

// Objects implements Source.
func (s *SQLSource) Objects(ctx context.Context, ws int64, w Window) ([]Object, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE `ws` = ? AND `id` > ? AND `id` <= ? ORDER BY `id` ASC",
		objectColumns, s.objects,
	)

	rows, err := s.db.QueryContext(ctx, query, ws, w.Low, w.High)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.objects, err)
	}
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		var o Object
		if err := rows.Scan(&o.Workspace, &o.ID, &o.LatestVersion, &o.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating objects: %w", err)
	}
	return objects, nil
}

// VersionsInWindow implements Source.
func (s *SQLSource) VersionsInWindow(ctx context.Context, ws int64, w Window) ([]Version, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE `ws` = ? AND `id` > ? AND `id` <= ? ORDER BY `id` ASC, `ver` ASC",
		versionColumns, s.versions,
	)
	return s.queryVersions(ctx, query, ws, w.Low, w.High)
}

// LatestVersions implements Source.
func (s *SQLSource) LatestVersions(ctx context.Context, ws int64, refs []VersionRef) ([]Version, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE `ws` = ? AND (%s) ORDER BY `id` ASC",
		versionColumns, s.versions,
		sqlutil.RepeatJoin("(`id` = ? AND `ver` = ?)", " OR ", len(refs)),
	)
	args := make([]interface{}, 0, 1+2*len(refs))
	args = append(args, ws)
	for _, r := range refs {
		args = append(args, r.ObjectID, r.Version)
	}
	return s.queryVersions(ctx, query, args...)
}

func (s *SQLSource) queryVersions(ctx context.Context, query string, args ...interface{}) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.versions, err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.Workspace, &v.ObjectID, &v.Version, &v.Type, &v.SavedBy, &v.Size); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}
	return versions, nil
}
