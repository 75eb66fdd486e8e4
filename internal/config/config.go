// Package config provides configuration structures and loading for wsstats.
package config

// Config represents the complete application configuration.
type Config struct {
	Source      DatabaseConfig    `yaml:"source" mapstructure:"source"`
	Target      TargetConfig      `yaml:"target" mapstructure:"target"`
	Collections CollectionsConfig `yaml:"collections" mapstructure:"collections"`
	Scan        ScanConfig        `yaml:"scan" mapstructure:"scan"`
	Report      ReportConfig      `yaml:"report" mapstructure:"report"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// Supported database drivers.
const (
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// DatabaseConfig represents a connection to the workspace database.
type DatabaseConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // mongo, mysql, sqlite
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	Path               string `yaml:"path" mapstructure:"path"` // sqlite file
	TLS                string `yaml:"tls" mapstructure:"tls"`   // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// TargetConfig is the optional database that stores report snapshots.
type TargetConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	DatabaseConfig `yaml:",inline" mapstructure:",squash"`
	Table          string `yaml:"table" mapstructure:"table"` // table or collection name
}

// CollectionsConfig names the workspace collections (tables for SQL drivers).
type CollectionsConfig struct {
	Workspaces string `yaml:"workspaces" mapstructure:"workspaces"`
	ACLs       string `yaml:"acls" mapstructure:"acls"`
	Objects    string `yaml:"objects" mapstructure:"objects"`
	Versions   string `yaml:"versions" mapstructure:"versions"`
}

// Version scopes for a scan.
const (
	VersionsAll    = "all"
	VersionsLatest = "latest"
)

// ScanConfig controls the windowed scan.
type ScanConfig struct {
	PageSize        int     `yaml:"page_size" mapstructure:"page_size"`
	LookupBatchSize int     `yaml:"lookup_batch_size" mapstructure:"lookup_batch_size"`
	MaxWorkspaces   int     `yaml:"max_workspaces" mapstructure:"max_workspaces"` // 0 = all
	Versions        string  `yaml:"versions" mapstructure:"versions"`             // all or latest
	IncludeDeleted  bool    `yaml:"include_deleted" mapstructure:"include_deleted"`
	SleepSeconds    float64 `yaml:"sleep_seconds" mapstructure:"sleep_seconds"`
}

// Report formats.
const (
	FormatTable   = "table"
	FormatTSV     = "tsv"
	FormatParquet = "parquet"
)

// ReportConfig controls report rendering.
type ReportConfig struct {
	Format  string   `yaml:"format" mapstructure:"format"` // table, tsv, parquet
	Output  string   `yaml:"output" mapstructure:"output"` // stdout or file path
	GroupBy []string `yaml:"group_by" mapstructure:"group_by"`
	Color   bool     `yaml:"color" mapstructure:"color"`
	Summary bool     `yaml:"summary" mapstructure:"summary"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultGroupBy is the full aggregation key, outermost dimension first.
var DefaultGroupBy = []string{"owner", "public", "deleted", "type", "version"}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: DatabaseConfig{
			Driver:             DriverMongo,
			Host:               "localhost",
			Port:               27017,
			Database:           "workspace",
			TLS:                "preferred",
			MaxConnections:     4,
			MaxIdleConnections: 2,
		},
		Target: TargetConfig{
			Enabled: false,
			DatabaseConfig: DatabaseConfig{
				Driver:             DriverMongo,
				Port:               27017,
				TLS:                "preferred",
				MaxConnections:     2,
				MaxIdleConnections: 1,
			},
			Table: "usage_snapshots",
		},
		Collections: CollectionsConfig{
			Workspaces: "workspaces",
			ACLs:       "workspaceACLs",
			Objects:    "workspaceObjects",
			Versions:   "workspaceObjVersions",
		},
		Scan: ScanConfig{
			PageSize:        10000,
			LookupBatchSize: 100,
			MaxWorkspaces:   0,
			Versions:        VersionsAll,
			IncludeDeleted:  true,
			SleepSeconds:    0,
		},
		Report: ReportConfig{
			Format:  FormatTable,
			Output:  "stdout",
			GroupBy: append([]string(nil), DefaultGroupBy...),
			Color:   false,
			Summary: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// DefaultPort returns the conventional port for a driver.
func DefaultPort(driver string) int {
	switch driver {
	case DriverMySQL:
		return 3306
	case DriverMongo:
		return 27017
	default:
		return 0
	}
}

// Redacted returns a copy of the configuration with passwords masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Source.Password != "" {
		out.Source.Password = "****"
	}
	if out.Target.Password != "" {
		out.Target.Password = "****"
	}
	out.Report.GroupBy = append([]string(nil), c.Report.GroupBy...)
	return &out
}
