package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/wsstats/internal/aggregate"
	"github.com/dbsmedya/wsstats/internal/config"
	"github.com/dbsmedya/wsstats/internal/database"
	"github.com/dbsmedya/wsstats/internal/logger"
	"github.com/dbsmedya/wsstats/internal/report"
	"github.com/dbsmedya/wsstats/internal/store"
)

var (
	scanVersions       string
	scanIncludeDeleted bool
	scanGroupBy        []string
	scanFormat         string
	scanOutput         string
	scanStore          bool
	scanSummary        bool
	scanColor          bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all workspaces and report object usage",
	Long: `Scan pages through every workspace in object ID windows, joins each object
with its versions and totals object counts and bytes per aggregation key.

The report is written only when the whole scan succeeds. A missing version
record or a malformed type string aborts the run with a non-zero exit. With
--store the snapshot is saved first; a failed save leaves no report behind.
The run summary goes to stderr so the report output stays machine-readable.

Examples:
  wsstats scan --config wsstats.yaml
  wsstats scan --driver sqlite --database ws.db --versions latest --format tsv
  wsstats scan -c wsstats.yaml --group-by owner,type --store`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanVersions, "versions", "",
		"Version scope: all (every saved version) or latest")
	scanCmd.Flags().BoolVar(&scanIncludeDeleted, "include-deleted", true,
		"Count deleted workspaces and objects")
	scanCmd.Flags().StringSliceVar(&scanGroupBy, "group-by", nil,
		"Report dimensions, outermost first (owner, public, deleted, type, version)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "",
		"Report format (table, tsv, parquet)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "",
		"Report destination: stdout or a file path")
	scanCmd.Flags().BoolVar(&scanStore, "store", false,
		"Store the report rows in the target database")
	scanCmd.Flags().BoolVar(&scanSummary, "summary", true,
		"Print the run summary to stderr")
	scanCmd.Flags().BoolVar(&scanColor, "color", false,
		"Color the table header")

	rootCmd.AddCommand(scanCmd)
}

// applyScanFlags copies the scan flags the user set onto cfg.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("versions") {
		cfg.Scan.Versions = scanVersions
	}
	if flags.Changed("include-deleted") {
		cfg.Scan.IncludeDeleted = scanIncludeDeleted
	}
	if flags.Changed("group-by") {
		cfg.Report.GroupBy = append([]string(nil), scanGroupBy...)
	}
	if flags.Changed("format") {
		cfg.Report.Format = scanFormat
	}
	if flags.Changed("output") {
		cfg.Report.Output = scanOutput
	}
	if flags.Changed("store") {
		cfg.Target.Enabled = scanStore
	}
	if flags.Changed("summary") {
		cfg.Report.Summary = scanSummary
	}
	if flags.Changed("color") {
		cfg.Report.Color = scanColor
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)

	// Configuration errors fail before any connection is opened.
	if err := cfg.Validate(); err != nil {
		return err
	}
	dims, err := report.ParseDimensions(cfg.Report.GroupBy)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Infow("Starting scan",
		"config", GetConfigFile(),
		"driver", cfg.Source.Driver,
		"versions", cfg.Scan.Versions,
		"page_size", cfg.Scan.PageSize,
	)

	ctx := database.SetupSignalHandlerWithCallback(func(sig os.Signal) {
		log.Warnf("Received %s, stopping at the next window boundary", sig)
	})

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to databases: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	src, err := dbManager.WorkspaceSource()
	if err != nil {
		return err
	}
	workspaces, err := src.Workspaces(ctx, cfg.Scan.IncludeDeleted)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	agg, err := aggregate.New(src, aggregate.OptionsFromConfig(cfg.Scan), log)
	if err != nil {
		return err
	}
	result, err := agg.Run(ctx, workspaces)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Scan cancelled, no report written")
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	rep, err := report.Build(result.Accumulator, dims)
	if err != nil {
		return err
	}

	if cfg.Target.Enabled {
		sink, err := dbManager.SnapshotSink(log)
		if err != nil {
			return err
		}
		if err := sink.Save(ctx, store.NewSnapshot(rep, time.Now())); err != nil {
			return fmt.Errorf("failed to store snapshot: %w", err)
		}
	}
	return writeReport(cmd, cfg.Report, rep, result.Stats)
}

// writeReport prints the summary to stderr and renders the report to the
// configured output.
func writeReport(cmd *cobra.Command, rc config.ReportConfig, rep *report.Report, stats aggregate.Stats) error {
	if rc.Summary {
		if err := report.WriteSummary(cmd.ErrOrStderr(), stats); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	out, closeOut, err := openOutput(cmd, rc.Output)
	if err != nil {
		return err
	}
	if err := report.Write(out, rep, report.Options{Format: rc.Format, Color: rc.Color}); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	switch path {
	case "", "stdout":
		return cmd.OutOrStdout(), func() error { return nil }, nil
	case "stderr":
		return cmd.ErrOrStderr(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, f.Close, nil
}
