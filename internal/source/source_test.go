package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	_ "modernc.org/sqlite"

	"github.com/dbsmedya/wsstats/internal/config"
)

func TestWindow(t *testing.T) {
	w := Window{Low: 100, High: 200}
	assert.False(t, w.Contains(100))
	assert.True(t, w.Contains(101))
	assert.True(t, w.Contains(200))
	assert.False(t, w.Contains(201))
	assert.Equal(t, "(100, 200]", w.String())
}

func TestMergePublic(t *testing.T) {
	workspaces := []Workspace{
		{ID: 3, Owner: "carol"},
		{ID: 1, Owner: "alice"},
		{ID: 2, Owner: "bob"},
	}

	got := mergePublic(workspaces, []int64{2, 3, 3, 99})

	require.Len(t, got, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{got[0].ID, got[1].ID, got[2].ID}, "order preserved")
	assert.True(t, got[0].Public)
	assert.False(t, got[1].Public)
	assert.True(t, got[2].Public)

	assert.Empty(t, mergePublic(nil, []int64{1}))
}

func TestDecodeWorkspace(t *testing.T) {
	ws, err := decodeWorkspace(bson.M{"ws": int32(42), "owner": "alice", "numObj": int64(3), "del": false})
	require.NoError(t, err)
	assert.Equal(t, Workspace{ID: 42, Owner: "alice", MaxObjectID: 3}, ws)

	// Older documents carry no del flag.
	ws, err = decodeWorkspace(bson.M{"ws": int32(7), "owner": "bob", "numObj": float64(12)})
	require.NoError(t, err)
	assert.False(t, ws.Deleted)
	assert.Equal(t, int64(12), ws.MaxObjectID)

	_, err = decodeWorkspace(bson.M{"ws": int32(7), "numObj": int32(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "owner" missing`)
}

func TestDecodeObject(t *testing.T) {
	o, err := decodeObject(bson.M{"ws": int32(42), "id": int64(5), "numver": int32(2), "del": true})
	require.NoError(t, err)
	assert.Equal(t, Object{Workspace: 42, ID: 5, LatestVersion: 2, Deleted: true}, o)

	_, err = decodeObject(bson.M{"ws": int32(42), "id": "5", "numver": int32(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "id"`)
}

func TestDecodeVersion(t *testing.T) {
	v, err := decodeVersion(bson.M{
		"ws": int32(42), "id": int32(1), "ver": int32(1),
		"type": "KBaseGenomes.Genome-1.0", "savedby": "alice", "size": int64(1 << 33),
	})
	require.NoError(t, err)
	assert.Equal(t, Version{
		Workspace: 42, ObjectID: 1, Version: 1,
		Type: "KBaseGenomes.Genome-1.0", SavedBy: "alice", Size: 1 << 33,
	}, v)

	_, err = decodeVersion(bson.M{"ws": int32(42), "id": int32(1), "ver": int32(1), "type": "Genome-1", "savedby": "alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "size" missing`)
}

func TestLatestVersionsFilter(t *testing.T) {
	f := latestVersionsFilter(42, []VersionRef{{ObjectID: 1, Version: 3}, {ObjectID: 9, Version: 1}})

	assert.Equal(t, int64(42), f["ws"])
	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	assert.Equal(t, bson.M{"id": int64(9), "ver": int64(1)}, or[1])
}

// seedSQLite creates the workspace tables in a temporary SQLite file.
func seedSQLite(t *testing.T, statements ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "ws.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema := []string{
		"CREATE TABLE workspaces (ws INTEGER PRIMARY KEY, owner TEXT NOT NULL, numObj INTEGER NOT NULL, del BOOLEAN NOT NULL DEFAULT 0)",
		"CREATE TABLE workspaceACLs (id INTEGER NOT NULL, user TEXT NOT NULL, perm INTEGER NOT NULL DEFAULT 10)",
		"CREATE TABLE workspaceObjects (ws INTEGER NOT NULL, id INTEGER NOT NULL, numver INTEGER NOT NULL, del BOOLEAN NOT NULL DEFAULT 0, PRIMARY KEY (ws, id))",
		"CREATE TABLE workspaceObjVersions (ws INTEGER NOT NULL, id INTEGER NOT NULL, ver INTEGER NOT NULL, type TEXT NOT NULL, savedby TEXT NOT NULL, size INTEGER NOT NULL, PRIMARY KEY (ws, id, ver))",
	}
	for _, stmt := range append(schema, statements...) {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

func TestSQLSource_SQLite(t *testing.T) {
	db := seedSQLite(t,
		"INSERT INTO workspaces VALUES (1, 'alice', 3, 0), (2, 'bob', 1, 1)",
		"INSERT INTO workspaceACLs (id, user) VALUES (1, '*'), (2, 'carol')",
		"INSERT INTO workspaceObjects VALUES (1, 1, 2, 0), (1, 3, 1, 1), (2, 1, 1, 0)",
		"INSERT INTO workspaceObjVersions VALUES (1, 1, 1, 'Genome-1', 'alice', 100), (1, 1, 2, 'Genome-2', 'bob', 150), (1, 3, 1, 'Reads-1', 'alice', 7)",
	)
	src, err := NewSQLSource(db, config.DefaultConfig().Collections)
	require.NoError(t, err)
	ctx := context.Background()

	all, err := src.Workspaces(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []Workspace{
		{ID: 1, Owner: "alice", Public: true, MaxObjectID: 3},
		{ID: 2, Owner: "bob", Deleted: true, MaxObjectID: 1},
	}, all)

	live, err := src.Workspaces(ctx, false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, int64(1), live[0].ID)

	objects, err := src.Objects(ctx, 1, Window{Low: 0, High: 2})
	require.NoError(t, err)
	assert.Equal(t, []Object{{Workspace: 1, ID: 1, LatestVersion: 2}}, objects)

	versions, err := src.VersionsInWindow(ctx, 1, Window{Low: 0, High: 10})
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, int64(2), versions[1].Version)

	latest, err := src.LatestVersions(ctx, 1, []VersionRef{{ObjectID: 1, Version: 2}, {ObjectID: 3, Version: 1}, {ObjectID: 3, Version: 9}})
	require.NoError(t, err)
	assert.Equal(t, []Version{
		{Workspace: 1, ObjectID: 1, Version: 2, Type: "Genome-2", SavedBy: "bob", Size: 150},
		{Workspace: 1, ObjectID: 3, Version: 1, Type: "Reads-1", SavedBy: "alice", Size: 7},
	}, latest)
}
