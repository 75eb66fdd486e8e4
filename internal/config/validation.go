package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// validDimensions are the aggregation dimensions accepted in report.group_by.
var validDimensions = map[string]bool{
	"owner": true, "public": true, "deleted": true, "type": true, "version": true,
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateDatabase("source", &c.Source)...)

	if c.Target.Enabled {
		errors = append(errors, c.validateDatabase("target", &c.Target.DatabaseConfig)...)
		if c.Target.Table == "" {
			errors = append(errors, ValidationError{
				Field:   "target.table",
				Message: "table is required when target is enabled",
			})
		}
	}

	errors = append(errors, c.validateCollections()...)
	errors = append(errors, c.validateScan()...)
	errors = append(errors, c.validateReport()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	switch db.Driver {
	case DriverSQLite:
		if db.Path == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".path",
				Message: "path is required for the sqlite driver",
			})
		}
		return errors
	case DriverMySQL, DriverMongo:
	default:
		return append(errors, ValidationError{
			Field:   prefix + ".driver",
			Message: "driver must be 'mongo', 'mysql', or 'sqlite'",
		})
	}

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	if db.Driver == DriverMySQL && db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required for the mysql driver",
		})
	}

	if db.User != "" && db.Password == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".password",
			Message: "password is required when user is set",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateCollections() ValidationErrors {
	var errors ValidationErrors

	names := []struct{ field, value string }{
		{"collections.workspaces", c.Collections.Workspaces},
		{"collections.acls", c.Collections.ACLs},
		{"collections.objects", c.Collections.Objects},
		{"collections.versions", c.Collections.Versions},
	}
	for _, n := range names {
		if n.value == "" {
			errors = append(errors, ValidationError{
				Field:   n.field,
				Message: "collection name is required",
			})
		}
	}

	return errors
}

func (c *Config) validateScan() ValidationErrors {
	var errors ValidationErrors

	if c.Scan.PageSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scan.page_size",
			Message: "page_size must be positive",
		})
	}

	if c.Scan.LookupBatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scan.lookup_batch_size",
			Message: "lookup_batch_size must be positive",
		})
	}

	if c.Scan.MaxWorkspaces < 0 {
		errors = append(errors, ValidationError{
			Field:   "scan.max_workspaces",
			Message: "max_workspaces cannot be negative",
		})
	}

	if c.Scan.Versions != VersionsAll && c.Scan.Versions != VersionsLatest {
		errors = append(errors, ValidationError{
			Field:   "scan.versions",
			Message: "versions must be 'all' or 'latest'",
		})
	}

	if c.Scan.SleepSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "scan.sleep_seconds",
			Message: "sleep_seconds cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateReport() ValidationErrors {
	var errors ValidationErrors

	validFormats := map[string]bool{FormatTable: true, FormatTSV: true, FormatParquet: true}
	if !validFormats[c.Report.Format] {
		errors = append(errors, ValidationError{
			Field:   "report.format",
			Message: "format must be 'table', 'tsv', or 'parquet'",
		})
	}

	if c.Report.Format == FormatParquet && (c.Report.Output == "" || c.Report.Output == "stdout") {
		errors = append(errors, ValidationError{
			Field:   "report.output",
			Message: "parquet reports must be written to a file",
		})
	}

	if len(c.Report.GroupBy) == 0 {
		errors = append(errors, ValidationError{
			Field:   "report.group_by",
			Message: "at least one dimension is required",
		})
	}
	seen := make(map[string]bool)
	for i, dim := range c.Report.GroupBy {
		field := fmt.Sprintf("report.group_by[%d]", i)
		dim = strings.ToLower(strings.TrimSpace(dim))
		if !validDimensions[dim] {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown dimension %q (owner, public, deleted, type, version)", dim),
			})
			continue
		}
		if seen[dim] {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("dimension %q listed twice", dim),
			})
		}
		seen[dim] = true
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
