package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Source.Driver != DriverMongo {
		t.Errorf("expected default driver mongo, got %s", cfg.Source.Driver)
	}
	if cfg.Source.Port != 27017 {
		t.Errorf("expected default port 27017, got %d", cfg.Source.Port)
	}
	if cfg.Scan.LookupBatchSize != 100 {
		t.Errorf("expected default lookup batch size 100, got %d", cfg.Scan.LookupBatchSize)
	}
	if cfg.Scan.Versions != VersionsAll {
		t.Errorf("expected default versions 'all', got %s", cfg.Scan.Versions)
	}
	if !cfg.Scan.IncludeDeleted {
		t.Error("expected deleted data to be included by default")
	}
	if cfg.Target.Enabled {
		t.Error("expected target disabled by default")
	}
	if len(cfg.Report.GroupBy) != 5 {
		t.Errorf("expected full aggregation key by default, got %v", cfg.Report.GroupBy)
	}

	// Defaults must not alias the package-level slice
	cfg.Report.GroupBy[0] = "changed"
	if DefaultGroupBy[0] != "owner" {
		t.Error("DefaultConfig leaked DefaultGroupBy")
	}
}

func TestDefaultPort(t *testing.T) {
	tests := []struct {
		driver string
		want   int
	}{
		{DriverMySQL, 3306},
		{DriverMongo, 27017},
		{DriverSQLite, 0},
		{"unknown", 0},
	}
	for _, tt := range tests {
		if got := DefaultPort(tt.driver); got != tt.want {
			t.Errorf("DefaultPort(%q) = %d, want %d", tt.driver, got, tt.want)
		}
	}
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Password = "secret"
	cfg.Target.Password = "other"

	r := cfg.Redacted()
	if r.Source.Password != "****" || r.Target.Password != "****" {
		t.Errorf("expected passwords masked, got %q/%q", r.Source.Password, r.Target.Password)
	}
	if cfg.Source.Password != "secret" {
		t.Error("Redacted modified the original config")
	}

	cfg.Source.Password = ""
	if cfg.Redacted().Source.Password != "" {
		t.Error("expected empty password to stay empty")
	}
}
