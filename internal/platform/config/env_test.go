package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"GANTRY_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("GANTRY_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("GANTRY_TEST_FILE_VAR", "")
	os.Unsetenv("GANTRY_TEST_FILE_VAR")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GANTRY_TEST_FILE_VAR=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if err := LoadEnvFile(path, true); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("GANTRY_TEST_FILE_VAR"); got != "from-file" {
		t.Fatalf("expected from-file, got %q", got)
	}
}

func TestLoadEnvFileKeepsRealEnv(t *testing.T) {
	t.Setenv("GANTRY_TEST_FILE_VAR", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GANTRY_TEST_FILE_VAR=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if err := LoadEnvFile(path, true); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("GANTRY_TEST_FILE_VAR"); got != "from-env" {
		t.Fatalf("expected real env to win, got %q", got)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.env")

	if err := LoadEnvFile(missing, false); err != nil {
		t.Fatalf("implicit missing file should be tolerated: %v", err)
	}
	if err := LoadEnvFile(missing, true); err == nil {
		t.Fatal("explicit missing file should error")
	}
}
