package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const validYAML = `
defaults:
  category: "Build"
  subcategory: "Threshold"
  filename_title: true
output:
  dir: "/srv/plans"
  format: "wahoo"
ledger:
  enabled: true
  path: "/var/lib/workoutconv/ledger.db"
batch:
  concurrency: 8
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, "config.yaml", validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Category != "Build" {
		t.Errorf("defaults.category = %q, want %q", cfg.Defaults.Category, "Build")
	}
	if cfg.Defaults.Subcategory != "Threshold" {
		t.Errorf("defaults.subcategory = %q, want %q", cfg.Defaults.Subcategory, "Threshold")
	}
	if !cfg.Defaults.FilenameTitle {
		t.Error("defaults.filename_title = false, want true")
	}
	if cfg.Output.Dir != "/srv/plans" || cfg.Output.Format != "wahoo" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Ledger.Path != "/var/lib/workoutconv/ledger.db" {
		t.Errorf("ledger.path = %q", cfg.Ledger.Path)
	}
	if cfg.Batch.Concurrency != 8 {
		t.Errorf("batch.concurrency = %d, want 8", cfg.Batch.Concurrency)
	}
}

// TestLoadWithoutFile verifies an empty path yields the defaults.
func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Ledger.Enabled || cfg.Ledger.Path == "" {
		t.Errorf("ledger = %+v, want enabled with a path", cfg.Ledger)
	}
	if cfg.Batch.Concurrency != 4 {
		t.Errorf("batch.concurrency = %d, want 4", cfg.Batch.Concurrency)
	}
	if cfg.Defaults.Category != "" || cfg.Defaults.FilenameTitle {
		t.Errorf("defaults = %+v, want zero", cfg.Defaults)
	}
}

// TestLoadWithoutCacheDir verifies the ledger is disabled rather than placed
// in the working directory when no user cache directory resolves.
func TestLoadWithoutCacheDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "plan9" {
		t.Skip("cache dir does not come from HOME on " + runtime.GOOS)
	}
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "")
	t.Setenv("WORKOUTCONV_LEDGER_ENABLED", "")
	t.Setenv("WORKOUTCONV_LEDGER_PATH", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ledger.Enabled || cfg.Ledger.Path != "" {
		t.Errorf("ledger = %+v, want disabled without a path", cfg.Ledger)
	}
}

// TestPartialFileKeepsDefaults verifies keys absent from the file keep their defaults.
func TestPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, "config.yaml", "defaults:\n  category: Base\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Category != "Base" {
		t.Errorf("defaults.category = %q", cfg.Defaults.Category)
	}
	if cfg.Batch.Concurrency != 4 || !cfg.Ledger.Enabled {
		t.Errorf("defaults lost: batch=%+v ledger=%+v", cfg.Batch, cfg.Ledger)
	}
}

// TestEnvOverride verifies that WORKOUTCONV_ env vars take precedence over YAML values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("WORKOUTCONV_CATEGORY", "Race")
	t.Setenv("WORKOUTCONV_CONCURRENCY", "2")
	t.Setenv("WORKOUTCONV_LEDGER_ENABLED", "false")
	t.Setenv("WORKOUTCONV_FILENAME_TITLE", "0")

	cfg, err := Load(writeTemp(t, "config.yaml", validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Category != "Race" {
		t.Errorf("defaults.category = %q, want %q", cfg.Defaults.Category, "Race")
	}
	if cfg.Batch.Concurrency != 2 {
		t.Errorf("batch.concurrency = %d, want 2", cfg.Batch.Concurrency)
	}
	if cfg.Ledger.Enabled {
		t.Error("ledger.enabled = true, want false")
	}
	if cfg.Defaults.FilenameTitle {
		t.Error("defaults.filename_title = true, want false")
	}
	// Unchanged fields should keep YAML values
	if cfg.Defaults.Subcategory != "Threshold" {
		t.Errorf("defaults.subcategory = %q, want %q", cfg.Defaults.Subcategory, "Threshold")
	}
}

// TestValidationConcurrency verifies that a non-positive concurrency is rejected.
func TestValidationConcurrency(t *testing.T) {
	_, err := Load(writeTemp(t, "config.yaml", "batch:\n  concurrency: 0\n"))
	if err == nil {
		t.Fatal("expected validation error for zero concurrency")
	}
}

// TestValidationLedgerPath verifies an enabled ledger needs a path.
func TestValidationLedgerPath(t *testing.T) {
	_, err := Load(writeTemp(t, "config.yaml", "ledger:\n  enabled: true\n  path: \"\"\n"))
	if err == nil {
		t.Fatal("expected validation error for empty ledger path")
	}
}

// TestLoadMissingFile verifies that a missing config file returns a clear error.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestLoadDotEnv verifies .env values reach the overrides without replacing
// variables already set in the environment, and missing files are ignored.
func TestLoadDotEnv(t *testing.T) {
	t.Setenv("WORKOUTCONV_SUBCATEGORY", "from-env")
	os.Unsetenv("WORKOUTCONV_OUTPUT_DIR")
	t.Cleanup(func() { os.Unsetenv("WORKOUTCONV_OUTPUT_DIR") })

	env := writeTemp(t, ".env", "WORKOUTCONV_OUTPUT_DIR=/tmp/plans\nWORKOUTCONV_SUBCATEGORY=from-dotenv\n")
	if err := LoadDotEnv(env, "/nonexistent/.env"); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output.Dir != "/tmp/plans" {
		t.Errorf("output.dir = %q, want %q", cfg.Output.Dir, "/tmp/plans")
	}
	if cfg.Defaults.Subcategory != "from-env" {
		t.Errorf("defaults.subcategory = %q, want %q", cfg.Defaults.Subcategory, "from-env")
	}
}
