package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/wsstats/internal/aggregate"
	"github.com/dbsmedya/wsstats/internal/database"
)

var workspacesIncludeDeleted bool

var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "List the workspaces a scan would visit",
	Long: `Workspaces lists every workspace the scan would visit, in scan order, with
its owner, visibility, deletion state, object ID watermark and the number of
windows the scan would fetch at the configured page size.

Example:
  wsstats workspaces --config wsstats.yaml --page-size 5000`,
	RunE: runWorkspaces,
}

func init() {
	workspacesCmd.Flags().BoolVar(&workspacesIncludeDeleted, "include-deleted", true,
		"List deleted workspaces")

	rootCmd.AddCommand(workspacesCmd)
}

func runWorkspaces(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("include-deleted") {
		cfg.Scan.IncludeDeleted = workspacesIncludeDeleted
	}
	// Listing never writes snapshots.
	cfg.Target.Enabled = false
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	dbManager := database.NewManager(cfg)
	if err := dbManager.ConnectSource(ctx); err != nil {
		return err
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

	plan := aggregate.Estimate(workspaces, aggregate.OptionsFromConfig(cfg.Scan))
	if len(plan.Partitions) == 0 {
		cmd.Println("No workspaces found")
		return nil
	}

	cmd.Printf("%-10s %-20s %-7s %-8s %12s %10s\n",
		"ID", "OWNER", "PUBLIC", "DELETED", "MAX OBJ ID", "WINDOWS")
	for _, p := range plan.Partitions {
		ws := p.Workspace
		cmd.Printf("%-10d %-20s %-7t %-8t %12d %10d\n",
			ws.ID, ws.Owner, ws.Public, ws.Deleted, ws.MaxObjectID, p.Windows)
	}

	cmd.Printf("\nTotal: %d workspace(s), %s windows at page size %s\n",
		len(plan.Partitions), humanize.Comma(plan.Windows), humanize.Comma(plan.PageSize))
	return nil
}
