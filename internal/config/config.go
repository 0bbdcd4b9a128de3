package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Render   RenderConfig   `yaml:"render"`
	Export   ExportConfig   `yaml:"export"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	BodyLimit string `yaml:"body_limit"`
}

// LLMConfig selects the remote model. Provider is "gemini" (default) or
// "openai" for any OpenAI-compatible endpoint such as OpenRouter.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	Key      string        `yaml:"key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type RenderConfig struct {
	DPI float64 `yaml:"dpi"`
}

type ExportConfig struct {
	SheetName string `yaml:"sheet_name"`
	FileName  string `yaml:"file_name"`
}

type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type DatabaseConfig struct {
	URL   string `yaml:"url"`
	Debug bool   `yaml:"debug"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	defaultAddr         = ":8501"
	defaultBodyLimit    = "50M"
	defaultGeminiModel  = "gemini-1.5-flash-002"
	defaultOpenAIBase   = "https://openrouter.ai/api/v1"
	defaultOpenAIModel  = "google/gemini-flash-1.5"
	defaultTimeout      = 120 * time.Second
	defaultDPI          = 72
	defaultSheetName    = "Dados Extraídos"
	defaultFileName     = "dados_extraidos.xlsx"
	defaultSessionTTL   = 30 * time.Minute
	defaultCleanupEvery = 5 * time.Minute
	defaultLogLevel     = "debug"
)

// LoadConfig reads the yaml file at path, loads a .env file if present and
// applies environment overrides. A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.LLM.Key == "" {
		for _, name := range c.keyEnvNames() {
			if v := os.Getenv(name); v != "" {
				c.LLM.Key = v
				break
			}
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && c.Database.URL == "" {
		c.Database.URL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
}

func (c *Config) keyEnvNames() []string {
	if c.LLM.Provider == ProviderOpenAI {
		return []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY"}
	}
	return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.BodyLimit == "" {
		c.Server.BodyLimit = defaultBodyLimit
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	if c.LLM.Model == "" {
		if c.LLM.Provider == ProviderOpenAI {
			c.LLM.Model = defaultOpenAIModel
		} else {
			c.LLM.Model = defaultGeminiModel
		}
	}
	if c.LLM.Provider == ProviderOpenAI && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultOpenAIBase
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = defaultTimeout
	}
	if c.Render.DPI <= 0 {
		c.Render.DPI = defaultDPI
	}
	if c.Export.SheetName == "" {
		c.Export.SheetName = defaultSheetName
	}
	if c.Export.FileName == "" {
		c.Export.FileName = defaultFileName
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = defaultSessionTTL
	}
	if c.Session.CleanupInterval <= 0 {
		c.Session.CleanupInterval = defaultCleanupEvery
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	if len([]rune(c.Export.SheetName)) > 31 {
		return fmt.Errorf("sheet name %q longer than 31 characters", c.Export.SheetName)
	}
	return nil
}
