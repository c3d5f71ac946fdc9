package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("LLM_KEY", "sk-test")

	cfg := DefaultConfig()

	if cfg.Temporal.TaskQueue != "infra-monitoring-task-queue" {
		t.Errorf("unexpected task queue: %q", cfg.Temporal.TaskQueue)
	}
	if cfg.Temporal.Host != "localhost:7233" {
		t.Errorf("unexpected host: %q", cfg.Temporal.Host)
	}
	if cfg.Repair.ExecutionConfidenceThreshold != 0.5 {
		t.Errorf("unexpected execution threshold: %v", cfg.Repair.ExecutionConfidenceThreshold)
	}
	if cfg.Repair.ActionabilityThreshold != 0.5 {
		t.Errorf("unexpected actionability threshold: %v", cfg.Repair.ActionabilityThreshold)
	}
	if cfg.Repair.CycleCooldown != 5*time.Minute {
		t.Errorf("unexpected cooldown: %v", cfg.Repair.CycleCooldown)
	}
	if cfg.Server.HTTPPort != 8085 {
		t.Errorf("unexpected port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Oracle.Model != "gpt-4o" || cfg.Oracle.APIKey != "sk-test" {
		t.Errorf("oracle credentials not picked up from environment: %+v", cfg.Oracle)
	}
	if cfg.Cache.Enabled || cfg.Audit.Enabled || cfg.Notify.Enabled || cfg.Telemetry.Enabled {
		t.Error("optional integrations should default to disabled")
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_KEY", "")
	t.Setenv("TEST_ORACLE_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
temporal:
  host: temporal.internal:7233
  task_queue: custom-queue
oracle:
  model: gpt-4o-mini
  api_key: ${TEST_ORACLE_KEY}
repair:
  execution_confidence_threshold: 0.7
  cycle_cooldown: 10m
server:
  http_port: 9090
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Temporal.Host != "temporal.internal:7233" {
		t.Errorf("unexpected host: %q", cfg.Temporal.Host)
	}
	if cfg.Temporal.TaskQueue != "custom-queue" {
		t.Errorf("unexpected task queue: %q", cfg.Temporal.TaskQueue)
	}
	if cfg.Oracle.APIKey != "sk-from-env" {
		t.Errorf("environment variable not expanded: %q", cfg.Oracle.APIKey)
	}
	if cfg.Repair.ExecutionConfidenceThreshold != 0.7 {
		t.Errorf("unexpected threshold: %v", cfg.Repair.ExecutionConfidenceThreshold)
	}
	if cfg.Repair.CycleCooldown != 10*time.Minute {
		t.Errorf("unexpected cooldown: %v", cfg.Repair.CycleCooldown)
	}
	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("unexpected port: %d", cfg.Server.HTTPPort)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Temporal.Namespace != "default" {
		t.Errorf("namespace default lost: %q", cfg.Temporal.Namespace)
	}
	if cfg.Repair.ActionabilityThreshold != 0.5 {
		t.Errorf("actionability default lost: %v", cfg.Repair.ActionabilityThreshold)
	}
	if cfg.Data.Dir != "./data" {
		t.Errorf("data dir default lost: %q", cfg.Data.Dir)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("temporal: [not a mapping"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_KEY", "")

	cfg := DefaultConfig()
	cfg.Oracle.Model = "gpt-4o"
	cfg.Oracle.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing model", func(c *Config) { c.Oracle.Model = "" }, "oracle model"},
		{"missing key", func(c *Config) { c.Oracle.APIKey = "" }, "API key"},
		{"missing task queue", func(c *Config) { c.Temporal.TaskQueue = "" }, "task queue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Oracle.Model = "gpt-4o"
			cfg.Oracle.APIKey = "sk-test"
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}
