package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"study-translate/internal/selector"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENROUTER_API_KEY", "DEEPL_API_KEY", "GOOGLE_TRANSLATE_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearKeys(t)
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.CORSOrigin != "*" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Upstream.Timeout != 60*time.Second {
		t.Fatalf("expected 60s timeout, got %s", cfg.Upstream.Timeout)
	}
	if cfg.Chunker.MaxChunkSize != 100000 {
		t.Fatalf("unexpected chunk size %d", cfg.Chunker.MaxChunkSize)
	}
	if cfg.Cache.Backend != CacheMemory {
		t.Fatalf("expected memory cache by default, got %s", cfg.Cache.Backend)
	}
	if len(cfg.Engines.Order) != 0 {
		t.Fatalf("expected no fallback engines by default, got %v", cfg.Engines.Order)
	}
	if diff := cmp.Diff(selector.DefaultModels, cfg.Models); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(selector.DefaultTiers, cfg.SelectorTiers()); diff != "" {
		t.Fatalf("tiers mismatch (-want +got):\n%s", diff)
	}
	if !filepath.IsAbs(cfg.Cache.Path) {
		t.Fatalf("cache path should be absolute, got %q", cfg.Cache.Path)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearKeys(t)
	path := writeConfig(t, `
server:
  port: 9090
upstream:
  timeout: 5s
models: [big, small]
tiers:
  - min_length: 1000
    model: big
  - min_length: 0
    model: small
cache:
  backend: sqlite
  path: /tmp/x.db
engines:
  order: [deepl, libretranslate]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Upstream.Timeout != 5*time.Second {
		t.Fatalf("file values not applied: %+v %+v", cfg.Server, cfg.Upstream)
	}
	want := []selector.Tier{{MinLength: 1000, Model: "big"}, {MinLength: 0, Model: "small"}}
	if diff := cmp.Diff(want, cfg.SelectorTiers()); diff != "" {
		t.Fatalf("tiers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"deepl", "libretranslate"}, cfg.Engines.Order); diff != "" {
		t.Fatalf("engine order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearKeys(t)
	t.Setenv("STUDY_TRANSLATE_SERVER_PORT", "7070")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-fallback")
	t.Setenv("DEEPL_API_KEY", "deepl-key")

	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env port, got %d", cfg.Server.Port)
	}
	if cfg.Upstream.APIKey != "sk-or-fallback" {
		t.Fatalf("expected OPENROUTER_API_KEY fallback, got %q", cfg.Upstream.APIKey)
	}
	if cfg.Engines.DeepL.APIKey != "deepl-key" {
		t.Fatalf("expected DEEPL_API_KEY fallback, got %q", cfg.Engines.DeepL.APIKey)
	}

	t.Setenv("STUDY_TRANSLATE_UPSTREAM_API_KEY", "sk-or-primary")
	cfg, err = Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Upstream.APIKey != "sk-or-primary" {
		t.Fatalf("prefixed key should win, got %q", cfg.Upstream.APIKey)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		clearKeys(t)
		cfg, err := Load(writeConfig(t, "{}\n"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "timeout", mutate: func(c *Config) { c.Upstream.Timeout = 0 }, want: "upstream.timeout"},
		{name: "tokens", mutate: func(c *Config) { c.Upstream.MaxOutputTokens = -1 }, want: "max_output_tokens"},
		{name: "chunk size", mutate: func(c *Config) { c.Chunker.MaxChunkSize = -5 }, want: "max_chunk_size"},
		{name: "unknown tier model", mutate: func(c *Config) { c.Tiers[0].Model = "ghost" }, want: "models/tiers"},
		{name: "backend", mutate: func(c *Config) { c.Cache.Backend = "redis" }, want: "cache backend"},
		{name: "sqlite path", mutate: func(c *Config) { c.Cache.Backend = CacheSQLite; c.Cache.Path = "" }, want: "cache.path"},
		{name: "engine", mutate: func(c *Config) { c.Engines.Order = []string{"bing"} }, want: "fallback engine"},
		{name: "engine twice", mutate: func(c *Config) { c.Engines.Order = []string{"deepl", "deepl"} }, want: "twice"},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, want: "logging.level"},
		{name: "log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, want: "logging format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := &Config{}
	cfg.Upstream.APIKey = "sk-or-v1-abcdefgh1234"
	cfg.Engines.DeepL.APIKey = "short"

	r := cfg.Redacted()
	if r.Upstream.APIKey != "sk-o****1234" {
		t.Fatalf("unexpected mask %q", r.Upstream.APIKey)
	}
	if r.Engines.DeepL.APIKey != "****" {
		t.Fatalf("unexpected mask %q", r.Engines.DeepL.APIKey)
	}
	if cfg.Upstream.APIKey != "sk-or-v1-abcdefgh1234" {
		t.Fatal("original config must not be modified")
	}
}
