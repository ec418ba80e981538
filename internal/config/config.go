package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrModelBackendMissing is the fatal configuration error: without a
// response model backend the orchestrator cannot be constructed.
var ErrModelBackendMissing = errors.New("config: model backend base_url is required")

type Config struct {
	Model     BackendConfig `yaml:"model" mapstructure:"model"`
	Embedding BackendConfig `yaml:"embedding" mapstructure:"embedding"`

	KnowledgeDB string `yaml:"knowledge_db" mapstructure:"knowledge_db"`
	LedgerDB    string `yaml:"ledger_db" mapstructure:"ledger_db"`

	MaxRounds      int           `yaml:"max_rounds" mapstructure:"max_rounds"`
	TopK           int           `yaml:"top_k" mapstructure:"top_k"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	LogLevel       string        `yaml:"log_level" mapstructure:"log_level"`
}

type BackendConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	Model      string `yaml:"model" mapstructure:"model"`
	Dimensions int    `yaml:"dimensions,omitempty" mapstructure:"dimensions"`
}

var envVarRe = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)

func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Model: BackendConfig{
			BaseURL: "https://api.openai.com/v1",
			APIKey:  "$OPENAI_API_KEY",
			Model:   "gpt-4",
		},
		Embedding: BackendConfig{
			BaseURL:    "https://api.openai.com/v1",
			APIKey:     "$OPENAI_API_KEY",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		KnowledgeDB:    filepath.Join(dataDir, "knowledge.db"),
		LedgerDB:       filepath.Join(dataDir, "ledger.db"),
		MaxRounds:      5,
		TopK:           3,
		RequestTimeout: 120 * time.Second,
		MaxRetries:     3,
		LogLevel:       "info",
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "vantage")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "vantage")
}

func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "vantage"))
	}
	home, _ := os.UserHomeDir()
	viper.AddConfigPath(filepath.Join(home, ".config", "vantage"))

	viper.SetEnvPrefix("VANTAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file; defaults plus environment apply.
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.Model.APIKey = expandEnv(cfg.Model.APIKey)
	cfg.Model.BaseURL = expandEnv(cfg.Model.BaseURL)
	cfg.Embedding.APIKey = expandEnv(cfg.Embedding.APIKey)
	cfg.Embedding.BaseURL = expandEnv(cfg.Embedding.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. Only the model backend is
// required; knowledge and ledger stores are optional and the core
// degrades without them.
func (c *Config) Validate() error {
	if c.Model.BaseURL == "" {
		return ErrModelBackendMissing
	}
	if c.Model.Model == "" {
		return fmt.Errorf("config: model backend requires a model name")
	}
	if c.Embedding.BaseURL != "" && c.Embedding.Model == "" {
		return fmt.Errorf("config: embedding backend requires a model name")
	}
	if c.MaxRounds < 1 {
		c.MaxRounds = 5
	}
	if c.TopK < 1 {
		c.TopK = 3
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 120 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 3
	}
	return nil
}
