package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/wsstats/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile         string
	logLevel        string
	logFormat       string
	driver          string
	host            string
	port            int
	dbName          string
	user            string
	password        string
	pageSize        int
	lookupBatchSize int
	maxWorkspaces   int
	sleepSeconds    float64
)

var rootCmd = &cobra.Command{
	Use:   "wsstats",
	Short: "Workspace object usage statistics",
	Long: `wsstats scans a workspace service's backing database in fixed-size object ID
windows and reports object counts and bytes grouped by owner, visibility,
deletion state, type name and type version.

The scan reads each workspace window by window so no single query returns
more than one page of rows. Sources can be MongoDB, MySQL or SQLite.`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Path to configuration file (defaults apply when omitted)")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Source overrides
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "",
		"Override source driver (mongo, mysql, sqlite)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "",
		"Override source host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0,
		"Override source port")
	rootCmd.PersistentFlags().StringVar(&dbName, "database", "",
		"Override source database (file path for sqlite)")
	rootCmd.PersistentFlags().StringVar(&user, "user", "",
		"Override source user")
	rootCmd.PersistentFlags().StringVar(&password, "password", "",
		"Override source password")

	// Scan overrides
	rootCmd.PersistentFlags().IntVar(&pageSize, "page-size", 0,
		"Override the object ID span of each window")
	rootCmd.PersistentFlags().IntVar(&lookupBatchSize, "lookup-batch-size", 0,
		"Override the number of latest-version lookups per query")
	rootCmd.PersistentFlags().IntVar(&maxWorkspaces, "max-workspaces", 0,
		"Override the number of workspaces scanned (0 = all)")
	rootCmd.PersistentFlags().Float64Var(&sleepSeconds, "sleep", 0,
		"Override sleep seconds between windows")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() config.Overrides {
	return config.Overrides{
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		Driver:          driver,
		Host:            host,
		Port:            port,
		Database:        dbName,
		User:            user,
		Password:        password,
		PageSize:        pageSize,
		LookupBatchSize: lookupBatchSize,
		MaxWorkspaces:   maxWorkspaces,
		SleepSeconds:    sleepSeconds,
	}
}

// loadConfig reads the config file and applies the persistent flag overrides.
// It does not validate; callers decide when validation happens.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(GetCLIOverrides())
	return cfg, nil
}
