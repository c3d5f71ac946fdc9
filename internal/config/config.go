package config

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Config is the top-level inframon configuration.
type Config struct {
	Temporal  TemporalConfig  `yaml:"temporal"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Data      DataConfig      `yaml:"data"`
	Repair    RepairConfig    `yaml:"repair"`
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Audit     AuditConfig     `yaml:"audit"`
	Notify    NotifyConfig    `yaml:"notify"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// TemporalConfig configures the workflow engine connection.
type TemporalConfig struct {
	Host                     string        `yaml:"host"`
	Namespace                string        `yaml:"namespace"`
	TaskQueue                string        `yaml:"task_queue"`
	WorkflowExecutionTimeout time.Duration `yaml:"workflow_execution_timeout"`
	WorkflowTaskTimeout      time.Duration `yaml:"workflow_task_timeout"`
}

// OracleConfig configures the reasoning oracle (LLM completion service).
type OracleConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DataConfig configures the equipment data store and report output.
type DataConfig struct {
	Dir        string `yaml:"dir"`
	ReportsDir string `yaml:"reports_dir"`
}

// RepairConfig holds the decision thresholds and cycle timing for the repair
// workflow. The thresholds are surfaced here with documented defaults rather
// than living as literals inside the decision logic.
type RepairConfig struct {
	// ExecutionConfidenceThreshold gates individual tool invocations: a
	// proposed tool below this confidence is counted as skipped, never run.
	ExecutionConfidenceThreshold float64 `yaml:"execution_confidence_threshold"`

	// ActionabilityThreshold gates the whole cycle: a detection confidence
	// below this short-circuits to NO-REPAIR-NEEDED.
	ActionabilityThreshold float64 `yaml:"actionability_threshold"`

	// CycleCooldown is how long the proactive workflow waits between cycles.
	CycleCooldown time.Duration `yaml:"cycle_cooldown"`

	// AnalysisDate pins the "today" used by the severity rubric so that
	// judgments against the static dataset stay stable. Format: 2006-01-02.
	AnalysisDate string `yaml:"analysis_date"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	HTTPPort       int           `yaml:"http_port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	EnableAuth     bool          `yaml:"enable_auth"`
	JWTSecret      string        `yaml:"jwt_secret"`
	AdminPassword  string        `yaml:"admin_password"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// CacheConfig configures the optional oracle response cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// AuditConfig configures the optional Postgres audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// NotifyConfig configures the optional NATS event publisher.
type NotifyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	StreamName string `yaml:"stream_name"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// MCPConfig configures the optional Model Context Protocol endpoint.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`

	// UserName is attributed to workflows started and decisions made
	// through MCP tools.
	UserName string `yaml:"user_name"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	return &Config{
		Temporal: TemporalConfig{
			Host:                     "localhost:7233",
			Namespace:                "default",
			TaskQueue:                "infra-monitoring-task-queue",
			WorkflowExecutionTimeout: 24 * time.Hour,
			WorkflowTaskTimeout:      10 * time.Second,
		},
		Oracle: OracleConfig{
			Endpoint:    "https://api.openai.com/v1",
			Model:       os.Getenv("LLM_MODEL"),
			APIKey:      os.Getenv("LLM_KEY"),
			Temperature: 0.2,
			Timeout:     120 * time.Second,
		},
		Data: DataConfig{
			Dir:        "./data",
			ReportsDir: "./reports",
		},
		Repair: RepairConfig{
			ExecutionConfidenceThreshold: 0.5,
			ActionabilityThreshold:       0.5,
			CycleCooldown:                5 * time.Minute,
			AnalysisDate:                 "2025-10-23",
		},
		Server: ServerConfig{
			HTTPPort:       8085,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			EnableAuth:     false,
			AllowedOrigins: []string{"*"},
		},
		Cache: CacheConfig{
			Enabled:  false,
			RedisURL: "redis://localhost:6379/0",
			TTL:      5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled: false,
		},
		Notify: NotifyConfig{
			Enabled:    false,
			URL:        "nats://localhost:4222",
			StreamName: "INFRAMON",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "inframon",
		},
		MCP: MCPConfig{
			Enabled:  false,
			Addr:     "localhost:8090",
			UserName: "Admin.User",
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Environment variables in
// the file (e.g. ${LLM_KEY}) are expanded before parsing. Fields absent from
// the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable for running workflows.
// A missing oracle model or API key is a configuration error raised before
// any oracle call is attempted.
func (c *Config) Validate() error {
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle model is not configured (set oracle.model or LLM_MODEL)")
	}
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle API key is not configured (set oracle.api_key or LLM_KEY)")
	}
	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("temporal task queue is not configured")
	}
	return nil
}

// PromptForAPIKey reads the oracle API key from the terminal with echo
// disabled. Used by the worker daemon when no key is configured and stdin is
// a terminal.
func PromptForAPIKey() (string, error) {
	fmt.Print("Enter oracle API key: ")
	keyBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}

	key := string(keyBytes)
	if key == "" {
		return "", fmt.Errorf("API key cannot be empty")
	}
	return key, nil
}
