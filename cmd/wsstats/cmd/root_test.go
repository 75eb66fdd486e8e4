package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/wsstats/internal/config"
)

func TestGetConfigFile(t *testing.T) {
	// Save original value and restore after test
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	tests := []struct {
		name     string
		cfgValue string
		want     string
	}{
		{
			name:     "no config file",
			cfgValue: "",
			want:     "",
		},
		{
			name:     "custom config file",
			cfgValue: "/path/to/custom.yaml",
			want:     "/path/to/custom.yaml",
		},
		{
			name:     "config file with spaces",
			cfgValue: "/path/to/my config.yaml",
			want:     "/path/to/my config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgFile = tt.cfgValue
			assert.Equal(t, tt.want, GetConfigFile())
		})
	}
}

func TestGetCLIOverrides(t *testing.T) {
	resetFlags(t)

	tests := []struct {
		name  string
		apply func()
		want  config.Overrides
	}{
		{
			name:  "empty overrides",
			apply: func() {},
			want:  config.Overrides{},
		},
		{
			name: "logging overrides",
			apply: func() {
				logLevel = "debug"
				logFormat = "json"
			},
			want: config.Overrides{LogLevel: "debug", LogFormat: "json"},
		},
		{
			name: "source overrides",
			apply: func() {
				driver = "mysql"
				host = "replica-2"
				port = 3307
				dbName = "workspace"
				user = "reporter"
				password = "secret"
			},
			want: config.Overrides{
				Driver: "mysql", Host: "replica-2", Port: 3307,
				Database: "workspace", User: "reporter", Password: "secret",
			},
		},
		{
			name: "scan overrides",
			apply: func() {
				pageSize = 500
				lookupBatchSize = 25
				maxWorkspaces = 3
				sleepSeconds = 0.5
			},
			want: config.Overrides{PageSize: 500, LookupBatchSize: 25, MaxWorkspaces: 3, SleepSeconds: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logLevel, logFormat, driver, host, dbName, user, password = "", "", "", "", "", "", ""
			port, pageSize, lookupBatchSize, maxWorkspaces, sleepSeconds = 0, 0, 0, 0, 0

			tt.apply()
			assert.Equal(t, tt.want, GetCLIOverrides())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	resetFlags(t)

	path := filepath.Join(t.TempDir(), "wsstats.yaml")
	content := `source:
  driver: mysql
  host: db.internal
  user: reporter
  password: secret
  database: workspace
scan:
  page_size: 2000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfgFile = path
	pageSize = 50
	host = "replica-3"

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Scan.PageSize, "flag should override file")
	assert.Equal(t, "replica-3", cfg.Source.Host)
	assert.Equal(t, 3306, cfg.Source.Port)
	assert.Equal(t, "workspace", cfg.Source.Database)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	resetFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
