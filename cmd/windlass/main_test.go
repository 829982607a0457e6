package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestConfig writes a config file and points WINDLASS_CONFIG at it.
func writeTestConfig(t *testing.T, content string) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("WINDLASS_CONFIG", configPath)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("WINDLASS_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ValidationFailure verifies run fails when the config does not
// validate.
func TestRun_ValidationFailure(t *testing.T) {
	writeTestConfig(t, `
vessel:
  id: ""
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty vessel id")
	}
}

// TestRun_SimulationLifecycle starts the full fleet with external
// services disabled and lets the context cancel it.
func TestRun_SimulationLifecycle(t *testing.T) {
	writeTestConfig(t, `
vessel:
  id: test-vessel

simulation:
  tick_interval: 20ms

journal:
  enabled: false

uplink:
  enabled: false

influxdb:
  enabled: false

logging:
  level: warn
  format: text
  output: stdout
`)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}
}

// TestRun_JournalEnabled starts the fleet with the bus journal recording
// to a temporary database.
func TestRun_JournalEnabled(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	writeTestConfig(t, `
vessel:
  id: test-vessel

simulation:
  tick_interval: 20ms

database:
  path: "`+dbPath+`"
  wal_mode: true
  busy_timeout: 5

journal:
  enabled: true
  retention_hours: 1

uplink:
  enabled: false

influxdb:
  enabled: false

logging:
  level: warn
  format: text
  output: stdout
`)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}

	if _, statErr := os.Stat(dbPath); statErr != nil {
		t.Errorf("journal database was not created: %v", statErr)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("WINDLASS_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("WINDLASS_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestDefaultAISTargets verifies targets are seeded around the start
// position.
func TestDefaultAISTargets(t *testing.T) {
	targets := defaultAISTargets(50.8, -1.1)
	if len(targets) == 0 {
		t.Fatal("defaultAISTargets() returned no targets")
	}
	for _, target := range targets {
		if target.MMSI == 0 || target.Name == "" {
			t.Errorf("target %+v missing identity", target)
		}
		if target.Latitude < 50 || target.Latitude > 51.5 {
			t.Errorf("target %s latitude %v too far from start", target.Name, target.Latitude)
		}
	}
}
