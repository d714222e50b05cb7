package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
)

// Config is the top-level configuration structure.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Models     ModelsConfig     `yaml:"models"`
	Escalation EscalationConfig `yaml:"escalation"`
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// BackendConfig holds connection settings for the Ollama-compatible
// backend that the LLM Provider and embedding client talk to.
type BackendConfig struct {
	URL                string `yaml:"url"`
	CallTimeoutSeconds int    `yaml:"call_timeout_seconds"`
}

// ModelsConfig names the model used at each fixed pipeline role, plus the
// embeddings model and the two thresholds that are not part of a fixed
// confidence weight.
type ModelsConfig struct {
	Planner         llm.ModelConfig `yaml:"planner"`
	Verifier        llm.ModelConfig `yaml:"verifier"`
	Reviser         llm.ModelConfig `yaml:"reviser"`
	EmbeddingsModel string          `yaml:"embeddings_model"`
	MaxRetries      int             `yaml:"max_retries"`
	MinConfidence   float64         `yaml:"min_confidence"`
}

// EscalationConfig is the ordered ladder of models the Inner Loop walks
// through, plus the attempt count at which it stops escalating. It does not
// end the loop: models.max_retries does that.
type EscalationConfig struct {
	Ladder      []llm.ModelConfig `yaml:"ladder"`
	MaxAttempts int               `yaml:"max_attempts"`
}

// HTTPServerConfig holds HTTP server listen settings.
type HTTPServerConfig struct {
	Port                   int    `yaml:"port"`
	Bind                   string `yaml:"bind"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds     int    `yaml:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	ErrorLogDir      string `yaml:"error_log_dir"`
	ErrorLogFilename string `yaml:"error_log_filename"`
}

// TelemetryConfig controls the optional OpenTelemetry tracer.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Load reads the YAML file at path, expands ${ENV_VAR} references in
// values, unmarshals into Config, applies environment variable overrides,
// sets defaults for any zero-value fields, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading file %q: %w", path, err)
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides overwrites specific Config fields when the
// corresponding environment variables are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RLM_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("RLM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.HTTPServer.Port = port
		}
	}
	if v := os.Getenv("RLM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RLM_TELEMETRY_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Enabled = enabled
		}
	}
}

func float32Ptr(f float32) *float32 { return &f }
func intPtr(i int) *int             { return &i }

// applyDefaults sets zero-value fields to their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Backend.CallTimeoutSeconds == 0 {
		cfg.Backend.CallTimeoutSeconds = 120
	}

	if cfg.Models.Planner.Name == "" {
		cfg.Models.Planner.Name = "qwen2.5:7b"
	}
	if cfg.Models.Verifier.Name == "" {
		cfg.Models.Verifier.Name = "qwen2.5:7b"
	}
	if cfg.Models.Verifier.Temperature == nil {
		cfg.Models.Verifier.Temperature = float32Ptr(0)
	}
	if cfg.Models.Verifier.MaxTokens == nil {
		cfg.Models.Verifier.MaxTokens = intPtr(256)
	}
	if cfg.Models.Reviser.Name == "" {
		cfg.Models.Reviser.Name = "qwen2.5:7b"
	}
	if cfg.Models.EmbeddingsModel == "" {
		cfg.Models.EmbeddingsModel = "nomic-embed-text"
	}
	if cfg.Models.MaxRetries == 0 {
		cfg.Models.MaxRetries = 2
	}
	if cfg.Models.MinConfidence == 0 {
		cfg.Models.MinConfidence = 0.75
	}

	if len(cfg.Escalation.Ladder) == 0 {
		cfg.Escalation.Ladder = []llm.ModelConfig{{Name: cfg.Models.Planner.Name}}
	}
	if cfg.Escalation.MaxAttempts == 0 {
		cfg.Escalation.MaxAttempts = len(cfg.Escalation.Ladder) + cfg.Models.MaxRetries
	}

	if cfg.HTTPServer.Port == 0 {
		cfg.HTTPServer.Port = 8080
	}
	if cfg.HTTPServer.Bind == "" {
		cfg.HTTPServer.Bind = "127.0.0.1"
	}
	if cfg.HTTPServer.ReadTimeoutSeconds == 0 {
		cfg.HTTPServer.ReadTimeoutSeconds = 30
	}
	if cfg.HTTPServer.WriteTimeoutSeconds == 0 {
		// A streaming SSE response can legitimately run far longer than a
		// single request; write timeout is measured from first byte, not
		// connection open, in net/http, but it is still set generously here.
		cfg.HTTPServer.WriteTimeoutSeconds = 600
	}
	if cfg.HTTPServer.IdleTimeoutSeconds == 0 {
		cfg.HTTPServer.IdleTimeoutSeconds = 120
	}
	if cfg.HTTPServer.ShutdownTimeoutSeconds == 0 {
		cfg.HTTPServer.ShutdownTimeoutSeconds = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "recursive-llm-gateway"
	}
}

// Validate returns an error if required fields are missing or values are
// out of range.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Models.MaxRetries < 1 {
		return fmt.Errorf("models.max_retries must be >= 1, got %d", c.Models.MaxRetries)
	}
	if c.Models.MinConfidence <= 0 || c.Models.MinConfidence > 1 {
		return fmt.Errorf("models.min_confidence must be in (0, 1], got %v", c.Models.MinConfidence)
	}
	if len(c.Escalation.Ladder) == 0 {
		return fmt.Errorf("escalation.ladder must contain at least one model")
	}
	if c.Escalation.MaxAttempts < 1 {
		return fmt.Errorf("escalation.max_attempts must be >= 1, got %d", c.Escalation.MaxAttempts)
	}
	return nil
}
