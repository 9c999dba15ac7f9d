// 本文件用于配置加载与校验测试
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"salon-agent/internal/models"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, "log_level: \"\"\n"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.DBPath != "db.sqlite" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.SalonName != "Salon X" {
		t.Fatalf("expected default salon name, got %q", cfg.SalonName)
	}
	if cfg.AdminBind != "127.0.0.1:5000" {
		t.Fatalf("expected default admin bind, got %q", cfg.AdminBind)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestLoadConfig_Values(t *testing.T) {
	content := `db_path: "data/salon.sqlite"
salon_name: "Luna Hair Studio"
seed_file: "seed.yaml"
seed_watch_enabled: true
session_timeout: "45m"
sweep_interval: "30s"
admin_bind: "0.0.0.0:8080"
ai_enabled: true
ai_base_url: "http://localhost:8080/v1"
ai_model: "qwen2.5"
`
	cfg, err := LoadConfig(writeConfigFile(t, content))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.DBPath != "data/salon.sqlite" || cfg.SalonName != "Luna Hair Studio" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.SeedWatchEnabled || cfg.SeedFile != "seed.yaml" {
		t.Fatalf("seed options not parsed: %+v", cfg)
	}
	if SessionTimeout(cfg) != 45*time.Minute {
		t.Fatalf("expected 45m session timeout, got %v", SessionTimeout(cfg))
	}
	if SweepInterval(cfg) != 30*time.Second {
		t.Fatalf("expected 30s sweep interval, got %v", SweepInterval(cfg))
	}
}

func TestLoadConfig_BadFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := LoadConfig(writeConfigFile(t, "db_path: [broken")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     models.Config
		wantErr bool
	}{
		{
			name: "minimal valid",
			cfg:  models.Config{DBPath: "db.sqlite"},
		},
		{
			name:    "empty db path",
			cfg:     models.Config{},
			wantErr: true,
		},
		{
			name:    "ai enabled without base url",
			cfg:     models.Config{DBPath: "db.sqlite", AIEnabled: true, AIModel: "m"},
			wantErr: true,
		},
		{
			name:    "ai enabled without model",
			cfg:     models.Config{DBPath: "db.sqlite", AIEnabled: true, AIBaseURL: "http://localhost:8080"},
			wantErr: true,
		},
		{
			name: "ai enabled complete",
			cfg:  models.Config{DBPath: "db.sqlite", AIEnabled: true, AIBaseURL: "http://localhost:8080", AIModel: "m"},
		},
		{
			name:    "backup enabled without bucket",
			cfg:     models.Config{DBPath: "db.sqlite", BackupEnabled: true, AK: "a", SK: "s", Endpoint: "e"},
			wantErr: true,
		},
		{
			name:    "backup enabled without credentials",
			cfg:     models.Config{DBPath: "db.sqlite", BackupEnabled: true, Bucket: "b", Endpoint: "e"},
			wantErr: true,
		},
		{
			name: "backup enabled complete",
			cfg:  models.Config{DBPath: "db.sqlite", BackupEnabled: true, Bucket: "b", AK: "a", SK: "s", Endpoint: "e"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(&tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected wantErr=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &models.Config{}
	if SessionTimeout(cfg) != DefaultSessionTimeout {
		t.Fatalf("expected default session timeout, got %v", SessionTimeout(cfg))
	}
	if SweepInterval(cfg) != DefaultSweepInterval {
		t.Fatalf("expected default sweep interval, got %v", SweepInterval(cfg))
	}
	if AITimeout(cfg) != DefaultAITimeout {
		t.Fatalf("expected default ai timeout, got %v", AITimeout(cfg))
	}
	if BackupInterval(cfg) != DefaultBackupInterval {
		t.Fatalf("expected default backup interval, got %v", BackupInterval(cfg))
	}

	// 非法与非正值一律回退
	cfg.SessionTimeout = "not-a-duration"
	if SessionTimeout(cfg) != DefaultSessionTimeout {
		t.Fatalf("expected fallback for garbage, got %v", SessionTimeout(cfg))
	}
	cfg.SessionTimeout = "-5m"
	if SessionTimeout(cfg) != DefaultSessionTimeout {
		t.Fatalf("expected fallback for negative, got %v", SessionTimeout(cfg))
	}
}
