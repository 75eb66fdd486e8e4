package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/wsstats/internal/config"
	"github.com/dbsmedya/wsstats/internal/database"
	"github.com/dbsmedya/wsstats/internal/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and check database connectivity",
	Long: `Validate checks the configuration and connects to the databases a scan
would use.

Checks performed:
  - Configuration syntax and required fields
  - Source database connectivity
  - Target database connectivity (when target.enabled is set)

Example:
  wsstats validate --config wsstats.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting validation checks...")

	ctx := context.Background()
	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to databases: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	src, err := dbManager.WorkspaceSource()
	if err != nil {
		return err
	}
	workspaces, err := src.Workspaces(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to read workspaces: %w", err)
	}

	cmd.Printf("\n=== Configuration Validation ===\n")
	if cfgFile := GetConfigFile(); cfgFile != "" {
		cmd.Printf("Config file: %s\n", cfgFile)
	} else {
		cmd.Printf("Config file: (none, defaults and flags)\n")
	}
	cmd.Printf("Source:      %s\n", describeSource(cfg.Source.Driver, cfg.Source.Host, cfg.Source.Port, cfg.Source.Database, cfg.Source.Path))
	cmd.Printf("Workspaces:  %d\n", len(workspaces))
	if cfg.Target.Enabled {
		t := cfg.Target
		cmd.Printf("Target:      %s (table %s)\n", describeSource(t.Driver, t.Host, t.Port, t.Database, t.Path), t.Table)
	} else {
		cmd.Printf("Target:      disabled\n")
	}
	cmd.Printf("\n=== Validation Complete ===\n")
	return nil
}

func describeSource(driver, host string, port int, dbName, path string) string {
	if driver == config.DriverSQLite {
		return fmt.Sprintf("%s %s", driver, path)
	}
	return fmt.Sprintf("%s %s:%d/%s", driver, host, port, dbName)
}
