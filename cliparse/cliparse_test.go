// cliparse/cliparse_test.go
package cliparse

import (
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("LOCK_WAIT", "5s")
	t.Setenv("TREND_HOURS", "48")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if cfg.LockWait != 5*time.Second {
		t.Errorf("expected lock wait 5s, got %v", cfg.LockWait)
	}
	if cfg.TrendHours != 48 {
		t.Errorf("expected 48 trend hours, got %d", cfg.TrendHours)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "--lock-lease", "10s", "--catalog", "catalog.yaml"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.LockLease != 10*time.Second {
		t.Errorf("expected lease 10s, got %v", cfg.LockLease)
	}
	if cfg.CatalogPath != "catalog.yaml" {
		t.Errorf("expected catalog path, got %q", cfg.CatalogPath)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("LOCK_LEASE", "")
	t.Setenv("LOCK_WAIT", "")
	t.Setenv("TREND_HOURS", "")
	t.Setenv("MAX_QUERY_LEN", "")

	cfg, err := ParseFlags([]string{"--database-url", "file:x.db"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != DefaultPort || cfg.DatabaseType != "sqlite" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LockLease != DefaultLockLease || cfg.LockWait != DefaultLockWait {
		t.Errorf("unexpected lock defaults: %v %v", cfg.LockLease, cfg.LockWait)
	}
	if cfg.TrendHours != 720 || cfg.MaxQueryLen != 1000 {
		t.Errorf("unexpected engine defaults: %+v", cfg)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing database", map[string]string{"DATABASE_URL": ""}, nil},
		{"bad port env", map[string]string{"PORT": "abc"}, []string{"-d", "x"}},
		{"bad duration env", map[string]string{"PORT": "", "LOCK_WAIT": "soon"}, []string{"-d", "x"}},
		{"unknown flag", nil, []string{"--nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}
