package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLoadParsesYAMLAndFillsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
database:
  host: db.internal
  name: recog
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected configured port to survive, got %d", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected configured db host to survive, got %q", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default db port 5432, got %d", cfg.Database.Port)
	}
	if cfg.Tracking.MaxAge != 3 {
		t.Errorf("expected default tracking max age 3, got %d", cfg.Tracking.MaxAge)
	}
	if cfg.Attendance.DuplicateWindow != 5*time.Minute {
		t.Errorf("expected default duplicate window 5m, got %s", cfg.Attendance.DuplicateWindow)
	}
	if cfg.Paths.FaceStore != "data/faces.json" {
		t.Errorf("expected default face store path, got %q", cfg.Paths.FaceStore)
	}
	if cfg.Paths.RunState != "data/runstate.txt" {
		t.Errorf("expected default run-state path, got %q", cfg.Paths.RunState)
	}
}

func TestLoadDefaultsDoNotOverrideConfiguredValues(t *testing.T) {
	path := writeConfigFile(t, `
paths:
  face_store: /var/lib/recog/faces.json
  run_state: /var/lib/recog/runstate.txt
tracking:
  max_age: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Paths.FaceStore != "/var/lib/recog/faces.json" {
		t.Errorf("expected configured face store path to survive, got %q", cfg.Paths.FaceStore)
	}
	if cfg.Tracking.MaxAge != 10 {
		t.Errorf("expected configured tracking max age to survive, got %d", cfg.Tracking.MaxAge)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
database:
  host: db.internal
`)

	t.Setenv("RECOG_SERVER_PORT", "7000")
	t.Setenv("RECOG_DB_HOST", "override.internal")
	t.Setenv("RECOG_API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected env override of port, got %d", cfg.Server.Port)
	}
	if cfg.Database.Host != "override.internal" {
		t.Errorf("expected env override of db host, got %q", cfg.Database.Host)
	}
	if cfg.Server.APIKey != "secret" {
		t.Errorf("expected env override of api key, got %q", cfg.Server.APIKey)
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{Host: "localhost", Port: 5432, Name: "recog", User: "u", Password: "p"}
	want := "postgres://u:p@localhost:5432/recog?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
