// Package database opens the workspace database and the snapshot target for wsstats.
package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dbsmedya/wsstats/internal/config"
	"github.com/dbsmedya/wsstats/internal/logger"
	"github.com/dbsmedya/wsstats/internal/source"
	"github.com/dbsmedya/wsstats/internal/store"
)

const connectTimeout = 10 * time.Second

// Conn is an open connection to one configured database. Exactly one of
// SQL and Mongo is set.
type Conn struct {
	Driver string
	SQL    *sql.DB
	Mongo  *mongo.Database
}

func (c *Conn) ping(ctx context.Context) error {
	if c.SQL != nil {
		return c.SQL.PingContext(ctx)
	}
	return c.Mongo.Client().Ping(ctx, readpref.SecondaryPreferred())
}

func (c *Conn) close(ctx context.Context) error {
	if c.SQL != nil {
		return c.SQL.Close()
	}
	return c.Mongo.Client().Disconnect(ctx)
}

// Manager handles the source and target connections. Connection failures
// are returned as is; there is no retry.
type Manager struct {
	Source *Conn
	Target *Conn
	config *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Connect opens the source and, when enabled, the target.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.ConnectSource(ctx); err != nil {
		return err
	}
	if err := m.ConnectTarget(ctx); err != nil {
		_ = m.Source.close(ctx)
		m.Source = nil
		return err
	}
	return nil
}

// ConnectSource opens the source database only.
func (m *Manager) ConnectSource(ctx context.Context) error {
	conn, err := open(ctx, &m.config.Source)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	m.Source = conn
	return nil
}

// ConnectTarget opens the target database. It does nothing when the target
// is disabled.
func (m *Manager) ConnectTarget(ctx context.Context) error {
	if !m.config.Target.Enabled {
		return nil
	}
	conn, err := open(ctx, &m.config.Target.DatabaseConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	m.Target = conn
	return nil
}

// WorkspaceSource returns a source reading the configured collections over
// the source connection.
func (m *Manager) WorkspaceSource() (source.Source, error) {
	if m.Source == nil {
		return nil, fmt.Errorf("source database is not connected")
	}
	if m.Source.Mongo != nil {
		return source.NewMongoSource(m.Source.Mongo, m.config.Collections)
	}
	return source.NewSQLSource(m.Source.SQL, m.config.Collections)
}

// SnapshotSink returns a sink writing to the target connection.
func (m *Manager) SnapshotSink(log *logger.Logger) (store.Sink, error) {
	if m.Target == nil {
		return nil, fmt.Errorf("target database is not connected")
	}
	if m.Target.Mongo != nil {
		return store.NewMongoSink(m.Target.Mongo, m.config.Target.Table, log)
	}
	return store.NewSQLSink(m.Target.SQL, m.config.Target.Table, log)
}

// open connects to one database and verifies it with a ping.
func open(ctx context.Context, cfg *config.DatabaseConfig) (*Conn, error) {
	conn := &Conn{Driver: cfg.Driver}
	switch cfg.Driver {
	case config.DriverMySQL, config.DriverSQLite:
		db, err := openSQL(cfg)
		if err != nil {
			return nil, err
		}
		conn.SQL = db
	case config.DriverMongo:
		client, err := mongo.Connect(ctx, BuildMongoOptions(cfg))
		if err != nil {
			return nil, err
		}
		conn.Mongo = client.Database(cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := conn.ping(pingCtx); err != nil {
		_ = conn.close(ctx)
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return conn, nil
}

// openSQL creates a database/sql pool for MySQL or SQLite.
func openSQL(cfg *config.DatabaseConfig) (*sql.DB, error) {
	driver, dsn := "mysql", ""
	if cfg.Driver == config.DriverSQLite {
		driver, dsn = "sqlite", cfg.Path
	} else {
		dsn = BuildDSN(cfg)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if cfg.Driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	params := "?parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// BuildMongoOptions constructs MongoDB client options from configuration.
// Reads go to secondaries when available so scans stay off the primary.
// Credentials authenticate against the configured database.
func BuildMongoOptions(cfg *config.DatabaseConfig) *options.ClientOptions {
	opts := options.Client().
		SetHosts([]string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}).
		SetReadPreference(readpref.SecondaryPreferred()).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout).
		SetAppName("wsstats")

	if cfg.User != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.User,
			Password:   cfg.Password,
			AuthSource: cfg.Database,
		})
	}
	if cfg.TLS == "required" {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	if cfg.MaxConnections > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxConnections))
	}
	return opts
}

// Close closes all database connections.
func (m *Manager) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var errs []error
	if m.Target != nil {
		if err := m.Target.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("target close: %w", err))
		}
	}
	if m.Source != nil {
		if err := m.Source.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("source close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// Ping verifies all open connections are alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Source != nil {
		if err := m.Source.ping(ctx); err != nil {
			return fmt.Errorf("source ping failed: %w", err)
		}
	}
	if m.Target != nil {
		if err := m.Target.ping(ctx); err != nil {
			return fmt.Errorf("target ping failed: %w", err)
		}
	}
	return nil
}
