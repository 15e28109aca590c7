// Package config loads testgen settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/v0xg/testgen/internal/ai"
	"github.com/v0xg/testgen/internal/logging"
)

// DefaultPath is the config file looked up when none is given
const DefaultPath = "testgen.yaml"

// Config holds all testgen configuration
type Config struct {
	LLM       ai.Config       `yaml:"llm"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Templates TemplatesConfig `yaml:"templates"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PromptsConfig locates the system prompts
type PromptsConfig struct {
	// Path is a directory of {name}.md files; empty uses the bundled prompts
	Path string `yaml:"path"`
}

// TemplatesConfig configures the template engine
type TemplatesConfig struct {
	// Path is the templates root; empty uses the bundled templates
	Path     string `yaml:"path"`
	Template string `yaml:"template"`
	UseCache bool   `yaml:"use_cache"`
	// Watch drops cached templates when their files change on disk
	Watch    bool           `yaml:"watch"`
	Defaults TemplateValues `yaml:"defaults"`
}

// TemplateValues are used when a request leaves them unset
type TemplateValues struct {
	Namespace string `yaml:"ns"`
	BaseURL   string `yaml:"base_url"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: ai.Config{
			Provider:    "ollama",
			Model:       "llama3.1",
			MaxTokens:   4096,
			Temperature: 0,
		},
		Templates: TemplatesConfig{
			Template: "CSTest.tmpl",
			UseCache: true,
			Defaults: TemplateValues{
				Namespace: "PlaywrightTests",
				BaseURL:   "http://localhost",
			},
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads the config file at path over the defaults and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.LLM.Provider, "TESTGEN_PROVIDER")
	setString(&c.LLM.Model, "TESTGEN_MODEL")
	setString(&c.LLM.BaseURL, "TESTGEN_BASE_URL")
	setString(&c.Prompts.Path, "TESTGEN_PROMPTS_PATH")
	setString(&c.Templates.Path, "TESTGEN_TEMPLATES_PATH")
	setString(&c.Templates.Defaults.Namespace, "TESTGEN_NAMESPACE")
	setString(&c.Templates.Defaults.BaseURL, "TESTGEN_APP_URL")
	setString(&c.Logging.Level, "TESTGEN_LOG_LEVEL")

	if v := os.Getenv("TESTGEN_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TESTGEN_MAX_TOKENS: invalid integer %q", v)
		}
		c.LLM.MaxTokens = n
	}
	if v := os.Getenv("TESTGEN_TEMPLATE_CACHE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TESTGEN_TEMPLATE_CACHE: invalid boolean %q", v)
		}
		c.Templates.UseCache = b
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate checks the configuration for obvious errors
func (c *Config) Validate() error {
	// same names ai.NewProvider accepts; empty means ollama
	switch strings.ToLower(c.LLM.Provider) {
	case "claude", "anthropic", "openai", "gpt", "ollama", "", "gemini", "google":
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must not be negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if c.Templates.Watch && c.Templates.Path == "" {
		return fmt.Errorf("templates.watch requires templates.path")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
