package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Config prints the configuration a scan would run with, after the config
file, environment substitution and command line overrides are applied.
Passwords are masked.

Example:
  wsstats config --config wsstats.yaml --page-size 500`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// The dump goes to stdout so it can be redirected into a config file.
	if _, err := fmt.Fprint(cmd.OutOrStdout(), string(out)); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		cmd.PrintErrf("\n%v\n", err)
	}
	return nil
}
