package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Source = DatabaseConfig{
		Driver:   DriverMySQL,
		Host:     "localhost",
		Port:     3306,
		User:     "root",
		Password: "pass",
		Database: "workspace",
	}
	return cfg
}

func TestValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestValidateFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing host", func(c *Config) { c.Source.Host = "" }, "source.host"},
		{"bad port", func(c *Config) { c.Source.Port = 70000 }, "source.port"},
		{"missing database", func(c *Config) { c.Source.Database = "" }, "source.database"},
		{"mysql without user", func(c *Config) { c.Source.User = ""; c.Source.Password = "" }, "source.user"},
		{"user without password", func(c *Config) { c.Source.Password = "" }, "source.password"},
		{"unknown driver", func(c *Config) { c.Source.Driver = "postgres" }, "source.driver"},
		{"sqlite without path", func(c *Config) { c.Source = DatabaseConfig{Driver: DriverSQLite} }, "source.path"},
		{"bad tls", func(c *Config) { c.Source.TLS = "sometimes" }, "source.tls"},
		{"zero page size", func(c *Config) { c.Scan.PageSize = 0 }, "scan.page_size"},
		{"negative lookup batch", func(c *Config) { c.Scan.LookupBatchSize = -3 }, "scan.lookup_batch_size"},
		{"negative max workspaces", func(c *Config) { c.Scan.MaxWorkspaces = -1 }, "scan.max_workspaces"},
		{"unknown version scope", func(c *Config) { c.Scan.Versions = "first" }, "scan.versions"},
		{"negative sleep", func(c *Config) { c.Scan.SleepSeconds = -1 }, "scan.sleep_seconds"},
		{"missing collection", func(c *Config) { c.Collections.ACLs = "" }, "collections.acls"},
		{"unknown format", func(c *Config) { c.Report.Format = "xml" }, "report.format"},
		{"parquet to stdout", func(c *Config) { c.Report.Format = FormatParquet }, "report.output"},
		{"empty group by", func(c *Config) { c.Report.GroupBy = nil }, "report.group_by"},
		{"unknown dimension", func(c *Config) { c.Report.GroupBy = []string{"owner", "size"} }, "report.group_by[1]"},
		{"duplicate dimension", func(c *Config) { c.Report.GroupBy = []string{"type", "type"} }, "report.group_by[1]"},
		{"duplicate dimension in other case", func(c *Config) { c.Report.GroupBy = []string{"owner", " Owner"} }, "report.group_by[1]"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"target without host", func(c *Config) {
			c.Target.Enabled = true
			c.Target.Database = "stats"
		}, "target.host"},
		{"target without table", func(c *Config) {
			c.Target.Enabled = true
			c.Target.Host = "localhost"
			c.Target.Database = "stats"
			c.Target.Table = ""
		}, "target.table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for field %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestValidateMongoWithoutCredentials(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected mongo without credentials to be valid, got: %v", err)
	}
}

func TestValidateGroupByIgnoresCase(t *testing.T) {
	cfg := validConfig()
	cfg.Report.GroupBy = []string{" Owner", "TYPE"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected mixed-case dimensions to be valid, got: %v", err)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Field: "scan.page_size", Message: "page_size must be positive"},
		{Field: "source.host", Message: "host is required"},
	}

	msg := errs.Error()
	if !strings.HasPrefix(msg, "validation failed:") {
		t.Errorf("unexpected message prefix: %q", msg)
	}
	if !strings.Contains(msg, "scan.page_size: page_size must be positive") {
		t.Errorf("expected page size message, got %q", msg)
	}
	if ValidationErrors(nil).Error() != "" {
		t.Error("expected empty message for no errors")
	}
}
