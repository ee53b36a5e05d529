package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Narrator backends accepted in NARRATOR.
const (
	NarratorTemplate = "template"
	NarratorGemini   = "gemini"
	NarratorOpenAI   = "openai"
)

// Config holds the application configuration.
type Config struct {
	Narrator         string        `env:"NARRATOR" envDefault:"template"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	GeminiModel      string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	NarrationTimeout time.Duration `env:"NARRATION_TIMEOUT" envDefault:"10s"`

	SaveDir     string `env:"SAVE_DIR" envDefault:".saves"`
	DBPath      string `env:"DB_PATH"`
	CatalogPath string `env:"CATALOG_PATH"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string     `env:"LOG_FILE"`

	// Seed fixes event selection. Zero picks a random seed.
	Seed uint64 `env:"SEED" envDefault:"0"`
}

// LoadConfig loads the configuration from environment variables and
// validates it.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Narrator {
	case NarratorTemplate:
	case NarratorGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY environment variable is not set"))
		}
	case NarratorOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY environment variable is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("NARRATOR %q is invalid; valid values: %s, %s, %s",
			c.Narrator, NarratorTemplate, NarratorGemini, NarratorOpenAI))
	}
	if c.NarrationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("NARRATION_TIMEOUT must be positive, got %s", c.NarrationTimeout))
	}
	if c.SaveDir == "" {
		errs = append(errs, errors.New("SAVE_DIR must not be empty"))
	}
	return errors.Join(errs...)
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
