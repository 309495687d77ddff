package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	API       APIConfig       `mapstructure:"api"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Log       LogConfig       `mapstructure:"log"`
	Output    OutputConfig    `mapstructure:"output"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Backend     string        `mapstructure:"backend"`
	ArticlesTTL time.Duration `mapstructure:"articles_ttl"`
	TagsTTL     time.Duration `mapstructure:"tags_ttl"`
	BooksTTL    time.Duration `mapstructure:"books_ttl"`
}

type GeneratorConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

const (
	CacheSQLite = "sqlite"
	CacheMemory = "memory"

	ProviderBackend    = "backend"
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	defaultDataDir := filepath.Join(homeDir, ".kiji")

	viper.SetDefault("data_dir", defaultDataDir)
	viper.SetDefault("api.base_url", "http://localhost:8080")
	viper.SetDefault("api.timeout", 30*time.Second)
	viper.SetDefault("cache.backend", CacheSQLite)
	viper.SetDefault("cache.articles_ttl", time.Minute)
	viper.SetDefault("cache.tags_ttl", time.Minute)
	viper.SetDefault("cache.books_ttl", 24*time.Hour)
	viper.SetDefault("generator.provider", ProviderBackend)
	viper.SetDefault("generator.timeout", 60*time.Second)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("output.colors", true)

	// Environment variable overrides
	viper.SetEnvPrefix("KIJI")
	viper.AutomaticEnv()
	viper.BindEnv("data_dir", "KIJI_DATA_DIR")
	viper.BindEnv("api.base_url", "KIJI_API_BASE_URL", "NEXT_PUBLIC_API_BASE_URL")
	viper.BindEnv("cache.backend", "KIJI_CACHE_BACKEND")
	viper.BindEnv("generator.provider", "KIJI_GENERATOR_PROVIDER")
	viper.BindEnv("generator.model", "KIJI_GENERATOR_MODEL")
	viper.BindEnv("generator.base_url", "KIJI_GENERATOR_BASE_URL")
	viper.BindEnv("log.level", "KIJI_LOG_LEVEL")

	// Config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(viper.GetString("data_dir"))

	// Read config file if exists (ignore error if not found)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must not be empty")
	}
	switch c.Cache.Backend {
	case CacheSQLite, CacheMemory:
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}
	switch c.Generator.Provider {
	case ProviderBackend, ProviderAnthropic, ProviderOpenAI, ProviderOpenRouter:
	default:
		return fmt.Errorf("unsupported generator provider: %s", c.Generator.Provider)
	}
	ttls := map[string]time.Duration{
		"cache.articles_ttl": c.Cache.ArticlesTTL,
		"cache.tags_ttl":     c.Cache.TagsTTL,
		"cache.books_ttl":    c.Cache.BooksTTL,
		"generator.timeout":  c.Generator.Timeout,
	}
	for key, d := range ttls {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}
	return nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "kiji.db")
}

func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "kiji.log")
}
