package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.Concurrency != 3 {
		t.Fatalf("concurrency = %d, want 3", cfg.Pipeline.Concurrency)
	}
	if cfg.Pipeline.MetricsWindowDays != 7 || cfg.Gateway.Provider != "ollama" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAMLThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "translator.yaml")
	yamlDoc := `
gateway:
  provider: openai
  defaultModel: gpt-4o-mini
pipeline:
  concurrency: 8
  idleWait: 2s
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv("PIPELINE_CONCURRENCY", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.Provider != "openai" || cfg.Gateway.DefaultModel != "gpt-4o-mini" {
		t.Fatalf("yaml overlay not applied: %+v", cfg.Gateway)
	}
	if cfg.Pipeline.IdleWait != 2*time.Second {
		t.Fatalf("idle wait = %v", cfg.Pipeline.IdleWait)
	}
	if cfg.Pipeline.Concurrency != 5 {
		t.Fatalf("environment must win over yaml, got %d", cfg.Pipeline.Concurrency)
	}
	if cfg.Pipeline.RequeueInterval != 30*time.Second {
		t.Fatalf("fields absent from yaml keep defaults, got %v", cfg.Pipeline.RequeueInterval)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("PIPELINE_CONCURRENCY", "0")
	t.Setenv("PIPELINE_STORE", "sqlite")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "concurrency") || !strings.Contains(err.Error(), "sqlite") {
		t.Fatalf("all problems should be reported, got %v", err)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "news", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=news sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("dsn = %q", got)
	}
}
