package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/wsstats/internal/logger"
	"github.com/dbsmedya/wsstats/internal/sqlutil"
)

// The statement is valid for both MySQL and SQLite.
const createSnapshotTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
	run_id VARCHAR(36) NOT NULL,
	taken_at TIMESTAMP NOT NULL,
	owner VARCHAR(255) NOT NULL,
	public VARCHAR(5) NOT NULL,
	deleted VARCHAR(5) NOT NULL,
	type_name VARCHAR(255) NOT NULL,
	type_version VARCHAR(64) NOT NULL,
	obj_count BIGINT NOT NULL,
	bytes BIGINT NOT NULL
)`

var snapshotColumns = sqlutil.ColumnList(
	"run_id", "taken_at", "owner", "public", "deleted",
	"type_name", "type_version", "obj_count", "bytes",
)

// SQLSink writes snapshots to a table through database/sql.
type SQLSink struct {
	db     *sql.DB
	table  string
	logger *logger.Logger
}

// NewSQLSink creates a sink writing to table.
func NewSQLSink(db *sql.DB, table string, log *logger.Logger) (*SQLSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	quoted, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return nil, fmt.Errorf("bad snapshot table name: %w", err)
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &SQLSink{db: db, table: quoted, logger: log}, nil
}

// InitializeTable creates the snapshot table if it does not exist.
func (s *SQLSink) InitializeTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createSnapshotTableSQL, s.table)); err != nil {
		return fmt.Errorf("failed to create %s table: %w", s.table, err)
	}
	return nil
}

// Save implements Sink. All rows are inserted in one transaction.
func (s *SQLSink) Save(ctx context.Context, snap Snapshot) error {
	if err := s.InitializeTable(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, snapshotColumns, sqlutil.RepeatJoin("?", ", ", 9))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", s.table, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range snap.Rows {
		if _, err := stmt.ExecContext(ctx,
			snap.RunID, snap.TakenAt, r.Owner, r.Public, r.Deleted,
			r.Type, r.Version, r.Count, r.Bytes,
		); err != nil {
			return fmt.Errorf("failed to insert snapshot row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	s.logger.WithRun(snap.RunID).Infof("Stored %d snapshot rows in %s", len(snap.Rows), s.table)
	return nil
}
