package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host               string        `env:"HOST" envDefault:"0.0.0.0"`
	Port               string        `env:"PORT" envDefault:"8000"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`
	MaxRequestBodySize int64         `env:"MAX_REQUEST_BODY_SIZE" envDefault:"20971520"` // 20MB
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	CORSAllowOrigins   []string      `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`

	// Generative model
	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	GeminiModel   string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-image"`
	GeminiBaseURL string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiTimeout time.Duration `env:"GEMINI_TIMEOUT" envDefault:"0s"` // 0 keeps the client default (no timeout)

	// Images sent to the model are downscaled to fit these bounds
	MaxInputWidth  int `env:"MAX_INPUT_WIDTH" envDefault:"1920"`
	MaxInputHeight int `env:"MAX_INPUT_HEIGHT" envDefault:"1080"`

	WatermarkFontPath string  `env:"WATERMARK_FONT_PATH"`
	WatermarkFontSize float64 `env:"WATERMARK_FONT_SIZE" envDefault:"20"`

	// Garment sources for the product URL flow
	FetchTimeout        time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s"`
	AzureStorageAccount string        `env:"AZURE_STORAGE_ACCOUNT"`
	AzureStorageKey     string        `env:"AZURE_STORAGE_KEY"`
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// GeminiConfigured reports whether a model credential is present.
func (c *Config) GeminiConfigured() bool {
	return c.GeminiAPIKey != ""
}

// AzureConfigured reports whether the Azure Blob garment source can be built.
func (c *Config) AzureConfigured() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

// LoadFromEnv reads an optional .env file and then the process environment.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	cfg.GeminiModel = strings.TrimSpace(cfg.GeminiModel)
	cfg.GeminiBaseURL = strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/")
	cfg.AzureStorageAccount = strings.TrimSpace(cfg.AzureStorageAccount)
	cfg.AzureStorageKey = strings.TrimSpace(cfg.AzureStorageKey)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.FetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s)", c.RequestTimeout, c.FetchTimeout)
	}
	if c.GeminiTimeout < 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be >= 0 (got %s)", c.GeminiTimeout)
	}
	if c.MaxInputWidth <= 0 || c.MaxInputHeight <= 0 {
		return fmt.Errorf("input bounds must be > 0 (got %dx%d)", c.MaxInputWidth, c.MaxInputHeight)
	}
	if c.WatermarkFontSize <= 0 {
		return fmt.Errorf("WATERMARK_FONT_SIZE must be > 0 (got %v)", c.WatermarkFontSize)
	}
	if c.GeminiModel == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	return nil
}
