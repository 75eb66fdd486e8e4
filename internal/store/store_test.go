package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	_ "modernc.org/sqlite"

	"github.com/dbsmedya/wsstats/internal/aggregate"
	"github.com/dbsmedya/wsstats/internal/logger"
	"github.com/dbsmedya/wsstats/internal/report"
)

var takenAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleReport(t *testing.T) *report.Report {
	t.Helper()
	acc := aggregate.NewAccumulator()
	acc.Add(aggregate.Key{Owner: "alice", TypeName: "Genome", TypeVersion: "1"}, 3, 354)
	acc.Add(aggregate.Key{Owner: "bob", Public: true, TypeName: "Reads", TypeVersion: "1.2"}, 1, 5)
	rep, err := report.Build(acc, report.AllDimensions)
	require.NoError(t, err)
	return rep
}

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot(sampleReport(t), takenAt.In(time.FixedZone("X", 3600)))

	_, err := uuid.Parse(snap.RunID)
	assert.NoError(t, err)
	assert.Equal(t, takenAt, snap.TakenAt)
	assert.Equal(t, time.UTC, snap.TakenAt.Location())

	// Subtotals and the grand total are not stored.
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, report.FlatRow{
		Kind: "detail", Owner: "alice", Public: "false", Deleted: "false",
		Type: "Genome", Version: "1", Count: 3, Bytes: 354,
	}, snap.Rows[0])

	other := NewSnapshot(sampleReport(t), takenAt)
	assert.NotEqual(t, snap.RunID, other.RunID)
}

func TestNewSQLSink_Errors(t *testing.T) {
	_, err := NewSQLSink(nil, "usage_snapshots", nil)
	assert.Error(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = NewSQLSink(db, "usage-snapshots", nil)
	assert.ErrorContains(t, err, "bad snapshot table name")
}

func TestSQLSink_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	sink, err := NewSQLSink(db, "usage_snapshots", logger.NewDefault())
	require.NoError(t, err)
	snap := NewSnapshot(sampleReport(t), takenAt)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `usage_snapshots`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(
		"INSERT INTO `usage_snapshots` (`run_id`, `taken_at`, `owner`, `public`, `deleted`, `type_name`, `type_version`, `obj_count`, `bytes`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	prep.ExpectExec().
		WithArgs(snap.RunID, takenAt, "alice", "false", "false", "Genome", "1", int64(3), int64(354)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs(snap.RunID, takenAt, "bob", "true", "false", "Reads", "1.2", int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, sink.Save(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSink_Save_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	sink, err := NewSQLSink(db, "usage_snapshots", logger.NewDefault())
	require.NoError(t, err)
	snap := NewSnapshot(sampleReport(t), takenAt)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO `usage_snapshots`")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = sink.Save(context.Background(), snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSink_Save_CreateTableError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	sink, err := NewSQLSink(db, "usage_snapshots", logger.NewDefault())
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnError(errors.New("access denied"))

	err = sink.Save(context.Background(), NewSnapshot(sampleReport(t), takenAt))
	assert.ErrorContains(t, err, "failed to create `usage_snapshots` table: access denied")
}

func TestSQLSink_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "target.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	sink, err := NewSQLSink(db, "usage_snapshots", logger.NewDefault())
	require.NoError(t, err)
	ctx := context.Background()

	first := NewSnapshot(sampleReport(t), takenAt)
	second := NewSnapshot(sampleReport(t), takenAt.Add(time.Hour))
	require.NoError(t, sink.Save(ctx, first))
	require.NoError(t, sink.Save(ctx, second))

	var runs, rows int
	require.NoError(t, db.QueryRow("SELECT COUNT(DISTINCT run_id), COUNT(*) FROM usage_snapshots").Scan(&runs, &rows))
	assert.Equal(t, 2, runs)
	assert.Equal(t, 4, rows)

	var bytes int64
	require.NoError(t, db.QueryRow(
		"SELECT bytes FROM usage_snapshots WHERE run_id = ? AND owner = ?", first.RunID, "alice").Scan(&bytes))
	assert.Equal(t, int64(354), bytes)
}

func TestSnapshotDocuments(t *testing.T) {
	snap := NewSnapshot(sampleReport(t), takenAt)
	docs := snapshotDocuments(snap)
	require.Len(t, docs, 2)

	doc, ok := docs[1].(bson.D)
	require.True(t, ok)
	m := doc.Map()
	assert.Equal(t, snap.RunID, m["run_id"])
	assert.Equal(t, takenAt, m["taken_at"])
	assert.Equal(t, "bob", m["owner"])
	assert.Equal(t, "true", m["public"])
	assert.Equal(t, "1.2", m["type_version"])
	assert.Equal(t, int64(5), m["bytes"])

	assert.Empty(t, snapshotDocuments(Snapshot{RunID: "x"}))
}
