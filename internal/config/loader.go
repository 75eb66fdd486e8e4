package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
// An empty path yields the defaults, so a scan can be driven by flags alone.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		cfg := DefaultConfig()
		if err := substituteEnvVars(cfg); err != nil {
			return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Lists replace the default rather than merging into it
	if v.IsSet("report.group_by") {
		cfg.Report.GroupBy = v.GetStringSlice("report.group_by")
	}

	// Ports follow the driver unless given explicitly
	if !v.IsSet("source.port") {
		cfg.Source.Port = DefaultPort(cfg.Source.Driver)
	}
	if !v.IsSet("target.port") {
		cfg.Target.Port = DefaultPort(cfg.Target.Driver)
	}

	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	for _, db := range []*DatabaseConfig{&cfg.Source, &cfg.Target.DatabaseConfig} {
		db.Host = expandEnvVar(db.Host)
		db.User = expandEnvVar(db.User)
		db.Password = expandEnvVar(db.Password)
		db.Database = expandEnvVar(db.Database)
		db.Path = expandEnvVar(db.Path)
	}

	cfg.Report.Output = expandEnvVar(cfg.Report.Output)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// Overrides carries CLI flag values that take precedence over the file.
// Zero values mean "not set".
type Overrides struct {
	LogLevel        string
	LogFormat       string
	Driver          string
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	PageSize        int
	LookupBatchSize int
	MaxWorkspaces   int
	SleepSeconds    float64
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied; negative sizes are kept so
// that Validate rejects them.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.Driver != "" && o.Driver != c.Source.Driver {
		c.Source.Driver = o.Driver
		if o.Port == 0 {
			c.Source.Port = DefaultPort(o.Driver)
		}
	}
	if o.Host != "" {
		c.Source.Host = o.Host
	}
	if o.Port > 0 {
		c.Source.Port = o.Port
	}
	if o.Database != "" {
		if c.Source.Driver == DriverSQLite {
			c.Source.Path = o.Database
		} else {
			c.Source.Database = o.Database
		}
	}
	if o.User != "" {
		c.Source.User = o.User
	}
	if o.Password != "" {
		c.Source.Password = o.Password
	}
	if o.PageSize != 0 {
		c.Scan.PageSize = o.PageSize
	}
	if o.LookupBatchSize != 0 {
		c.Scan.LookupBatchSize = o.LookupBatchSize
	}
	if o.MaxWorkspaces != 0 {
		c.Scan.MaxWorkspaces = o.MaxWorkspaces
	}
	if o.SleepSeconds > 0 {
		c.Scan.SleepSeconds = o.SleepSeconds
	}
}
