// Package config provides configuration management for the shortener CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the shortener configuration file.
type Config struct {
	// Version of the config file format
	Version string `yaml:"version"`

	Service   ServiceConfig   `yaml:"service"`
	Slug      SlugConfig      `yaml:"slug"`
	Validator ValidatorConfig `yaml:"validator"`
	EventLog  EventLogConfig  `yaml:"event_log"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServiceConfig contains service-level settings.
type ServiceConfig struct {
	// Name labels logs, metrics and spans.
	Name string `yaml:"name"`
}

// SlugConfig selects the slug generator.
type SlugConfig struct {
	// Generator is random, uuid or timestamp.
	Generator string `yaml:"generator"`

	// Length of random slugs.
	Length int `yaml:"length"`
}

// ValidatorConfig selects the URL validator.
type ValidatorConfig struct {
	// Kind is basic or strict.
	Kind string `yaml:"kind"`

	// The remaining fields only apply to strict.
	MaxLength       int      `yaml:"max_length"`
	BlockedDomains  []string `yaml:"blocked_domains,omitempty"`
	AllowPrivateIPs bool     `yaml:"allow_private_ips"`
}

// EventLogConfig contains event log settings.
type EventLogConfig struct {
	// Encoding of event payloads: json or msgpack.
	Encoding string `yaml:"encoding"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig toggles metrics and tracing.
type TelemetryConfig struct {
	Metrics bool `yaml:"metrics"`
	Tracing bool `yaml:"tracing"`
}

// Accepted values.
var (
	Generators = []string{"random", "uuid", "timestamp"}
	Validators = []string{"basic", "strict"}
	Encodings  = []string{"json", "msgpack"}
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"text", "json"}
)

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Service: ServiceConfig{
			Name: "shortener",
		},
		Slug: SlugConfig{
			Generator: "timestamp",
			Length:    7,
		},
		Validator: ValidatorConfig{
			Kind:      "basic",
			MaxLength: 2048,
		},
		EventLog: EventLogConfig{
			Encoding: "json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = "shortener.yaml"

// Load loads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. Missing keys keep
// their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves the configuration to the specified directory.
func (c *Config) Save(dir string) error {
	path := filepath.Join(dir, ConfigFileName)
	return c.SaveFile(path)
}

// SaveFile saves the configuration to a specific file path.
func (c *Config) SaveFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Exists checks if a config file exists in the directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindConfig searches for a config file starting from dir and going up.
func FindConfig(dir string) (string, *Config, error) {
	current := dir
	for {
		configPath := filepath.Join(current, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			cfg, err := LoadFile(configPath)
			if err != nil {
				return "", nil, err
			}
			return current, cfg, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", nil, os.ErrNotExist
		}
		current = parent
	}
}

// Validate validates the configuration.
func (c *Config) Validate() []string {
	var errors []string

	if c.Service.Name == "" {
		errors = append(errors, "service.name is required")
	}

	if !oneOf(c.Slug.Generator, Generators) {
		errors = append(errors, "slug.generator must be one of random, uuid, timestamp")
	}

	if c.Slug.Length < 0 {
		errors = append(errors, "slug.length must not be negative")
	}

	if !oneOf(c.Validator.Kind, Validators) {
		errors = append(errors, "validator.kind must be 'basic' or 'strict'")
	}

	if c.Validator.MaxLength < 0 {
		errors = append(errors, "validator.max_length must not be negative")
	}

	if !oneOf(c.EventLog.Encoding, Encodings) {
		errors = append(errors, "event_log.encoding must be 'json' or 'msgpack'")
	}

	if !oneOf(c.Logging.Level, LogLevels) {
		errors = append(errors, "logging.level must be one of debug, info, warn, error")
	}

	if !oneOf(c.Logging.Format, LogFormats) {
		errors = append(errors, "logging.format must be 'text' or 'json'")
	}

	return errors
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// GenerateYAML generates YAML content with comments.
func GenerateYAML(cfg *Config) string {
	return `# Shortener Configuration File

version: "1"

service:
  # Name used in logs, metrics and spans
  name: "` + cfg.Service.Name + `"

slug:
  # Generator for links created without a slug: random, uuid or timestamp
  generator: "` + cfg.Slug.Generator + `"

  # Length of random slugs
  length: ` + fmt.Sprint(cfg.Slug.Length) + `

validator:
  # basic: http(s) prefix and a dot. strict: parsed, length and host checks
  kind: "` + cfg.Validator.Kind + `"
  max_length: ` + fmt.Sprint(cfg.Validator.MaxLength) + `
  allow_private_ips: ` + fmt.Sprint(cfg.Validator.AllowPrivateIPs) + `

event_log:
  # Payload encoding: json or msgpack
  encoding: "` + cfg.EventLog.Encoding + `"

logging:
  level: "` + cfg.Logging.Level + `"
  format: "` + cfg.Logging.Format + `"

telemetry:
  metrics: ` + fmt.Sprint(cfg.Telemetry.Metrics) + `
  tracing: ` + fmt.Sprint(cfg.Telemetry.Tracing) + `
`
}
