// Package config loads the pipeline's process-wide configuration: a YAML
// file layered with .env development overrides and direct environment-flag
// lookups, then struct-tag validated. Sane defaults are applied for
// everything an operator can reasonably omit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/registry"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// OCRConfig configures the OCR adapter.
type OCRConfig struct {
	Provider string        `yaml:"provider" validate:"required,oneof=mistral mock"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// InterpreterConfig configures the advisory LLM interpreter adapter
// (INTERPRETER_PROVIDER selects gemini, bedrock, or mock).
type InterpreterConfig struct {
	Provider            string `yaml:"provider" validate:"required,oneof=gemini bedrock mock"`
	Model               string `yaml:"model"`
	AllowRawOCRInsights bool   `yaml:"allowRawOcrInsights"`
}

// RegistryConfig configures the template registry's SSOT policy
// (TEMPLATE_SSOT_MODE).
type RegistryConfig struct {
	SSOTMode    string `yaml:"ssotMode" validate:"omitempty,oneof=strict permissive"`
	PostgresDSN string `yaml:"postgresDsn"`
}

// StorageConfig configures the optional queryable audit-history index.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlitePath"`
}

// LoggingConfig configures the safe structured logger (LOG_LEVEL).
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// ArtifactsConfig configures where on-disk JSON artifacts are written.
type ArtifactsConfig struct {
	BaseDir string `yaml:"baseDir"`
}

// CalibrationConfig selects the process-wide threshold level.
type CalibrationConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=lenient standard strict"`
}

// Config is the pipeline's full process configuration, loaded from a YAML
// file and overlaid with environment variables.
type Config struct {
	OCR         OCRConfig         `yaml:"ocr"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
	Registry    RegistryConfig    `yaml:"registry"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
	Artifacts   ArtifactsConfig   `yaml:"artifacts"`
	Calibration CalibrationConfig `yaml:"calibration"`
}

func defaults() Config {
	return Config{
		OCR:         OCRConfig{Provider: "mock", Timeout: 30 * time.Second},
		Interpreter: InterpreterConfig{Provider: "mock"},
		Registry:    RegistryConfig{SSOTMode: "strict"},
		Storage:     StorageConfig{SQLitePath: "audit_history.db"},
		Logging:     LoggingConfig{Level: "info", Format: "json"},
		Artifacts:   ArtifactsConfig{BaseDir: "./artifacts"},
		Calibration: CalibrationConfig{Level: "standard"},
	}
}

// Load reads path as YAML into a Config seeded with defaults, loads a
// sibling .env file if present (godotenv, development convenience only —
// missing .env is not an error), then applies the boundary
// environment-variable overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	applyEnvOverrides(&cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides layers the recognized boundary environment variables
// over whatever the YAML file declared. Each is optional; an unset variable
// leaves the YAML/default value untouched.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OCR_PROVIDER"); v != "" {
		cfg.OCR.Provider = v
	}
	if v := os.Getenv("INTERPRETER_PROVIDER"); v != "" {
		cfg.Interpreter.Provider = v
	}
	if v := os.Getenv("ENABLE_RAW_OCR_INSIGHTS"); v != "" {
		cfg.Interpreter.AllowRawOCRInsights = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TEMPLATE_SSOT_MODE"); v != "" {
		cfg.Registry.SSOTMode = v
	}
}

// ResolvedSSOTMode applies the production/staging strict-mode override
// (internal/registry.ResolveSSOTMode) on top of the configured mode.
func (c *Config) ResolvedSSOTMode(onOverrideIgnored func(requested registry.SSOTMode)) registry.SSOTMode {
	return registry.ResolveSSOTMode(registry.SSOTMode(c.Registry.SSOTMode), onOverrideIgnored)
}
