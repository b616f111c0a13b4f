package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"study-translate/internal/selector"
)

const envPrefix = "STUDY_TRANSLATE"

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream" yaml:"upstream"`
	Models   []string       `mapstructure:"models" yaml:"models"`
	Tiers    []TierConfig   `mapstructure:"tiers" yaml:"tiers"`
	Chunker  ChunkerConfig  `mapstructure:"chunker" yaml:"chunker"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Engines  EnginesConfig  `mapstructure:"engines" yaml:"engines"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin"`
}

type UpstreamConfig struct {
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	Referer         string        `mapstructure:"referer" yaml:"referer"`
	Title           string        `mapstructure:"title" yaml:"title"`
	Prompt          string        `mapstructure:"prompt" yaml:"prompt,omitempty"`
}

type TierConfig struct {
	MinLength int    `mapstructure:"min_length" yaml:"min_length"`
	Model     string `mapstructure:"model" yaml:"model"`
}

type ChunkerConfig struct {
	MaxChunkSize int `mapstructure:"max_chunk_size" yaml:"max_chunk_size"`
}

type CacheConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Size    int    `mapstructure:"size" yaml:"size"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type EnginesConfig struct {
	Order          []string             `mapstructure:"order" yaml:"order"`
	LibreTranslate LibreTranslateConfig `mapstructure:"libretranslate" yaml:"libretranslate"`
	DeepL          DeepLConfig          `mapstructure:"deepl" yaml:"deepl"`
	Google         GoogleConfig         `mapstructure:"google" yaml:"google"`
}

type LibreTranslateConfig struct {
	Host   string `mapstructure:"host" yaml:"host"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

type DeepLConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	Free   bool   `mapstructure:"free" yaml:"free"`
}

type GoogleConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheNone   = "none"
)

// Fallback engines that may appear in engines.order.
const (
	EngineLibreTranslate = "libretranslate"
	EngineDeepL          = "deepl"
	EngineGoogle         = "google"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.study-translate")
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Upstream.APIKey == "" {
		cfg.Upstream.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.Engines.DeepL.APIKey == "" {
		cfg.Engines.DeepL.APIKey = os.Getenv("DEEPL_API_KEY")
	}
	if cfg.Engines.Google.APIKey == "" {
		cfg.Engines.Google.APIKey = os.Getenv("GOOGLE_TRANSLATE_API_KEY")
	}

	// Resolve relative paths
	if cfg.Cache.Path != "" && !filepath.IsAbs(cfg.Cache.Path) {
		cwd, _ := os.Getwd()
		cfg.Cache.Path = filepath.Join(cwd, cfg.Cache.Path)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origin", "*")

	v.SetDefault("upstream.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.timeout", "60s")
	v.SetDefault("upstream.max_output_tokens", 8000)
	v.SetDefault("upstream.referer", "")
	v.SetDefault("upstream.title", "study-translate")
	v.SetDefault("upstream.prompt", "")

	v.SetDefault("models", selector.DefaultModels)
	tiers := make([]map[string]interface{}, 0, len(selector.DefaultTiers))
	for _, t := range selector.DefaultTiers {
		tiers = append(tiers, map[string]interface{}{"min_length": t.MinLength, "model": t.Model})
	}
	v.SetDefault("tiers", tiers)

	v.SetDefault("chunker.max_chunk_size", 100000)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.size", 1000)
	v.SetDefault("cache.path", "./translations.db")

	v.SetDefault("engines.order", []string{})
	v.SetDefault("engines.libretranslate.host", "https://libretranslate.com")
	v.SetDefault("engines.libretranslate.api_key", "")
	v.SetDefault("engines.deepl.api_key", "")
	v.SetDefault("engines.deepl.free", true)
	v.SetDefault("engines.google.api_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// SelectorTiers converts the configured tiers.
func (c *Config) SelectorTiers() []selector.Tier {
	out := make([]selector.Tier, 0, len(c.Tiers))
	for _, t := range c.Tiers {
		out = append(out, selector.Tier{MinLength: t.MinLength, Model: t.Model})
	}
	return out
}

// Selector builds the model selector from models and tiers.
func (c *Config) Selector() (*selector.Selector, error) {
	return selector.New(c.Models, c.SelectorTiers())
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Upstream.MaxOutputTokens <= 0 {
		return fmt.Errorf("upstream.max_output_tokens must be positive")
	}
	if c.Chunker.MaxChunkSize < 0 {
		return fmt.Errorf("chunker.max_chunk_size must not be negative")
	}
	if _, err := c.Selector(); err != nil {
		return fmt.Errorf("models/tiers: %w", err)
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheSQLite:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	seen := make(map[string]bool, len(c.Engines.Order))
	for _, e := range c.Engines.Order {
		switch e {
		case EngineLibreTranslate, EngineDeepL, EngineGoogle:
		default:
			return fmt.Errorf("unknown fallback engine: %s", e)
		}
		if seen[e] {
			return fmt.Errorf("fallback engine %s listed twice", e)
		}
		seen[e] = true
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging format: %s", c.Logging.Format)
	}

	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Models = append([]string(nil), c.Models...)
	out.Tiers = append([]TierConfig(nil), c.Tiers...)
	out.Engines.Order = append([]string(nil), c.Engines.Order...)
	out.Upstream.APIKey = mask(c.Upstream.APIKey)
	out.Engines.LibreTranslate.APIKey = mask(c.Engines.LibreTranslate.APIKey)
	out.Engines.DeepL.APIKey = mask(c.Engines.DeepL.APIKey)
	out.Engines.Google.APIKey = mask(c.Engines.Google.APIKey)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
