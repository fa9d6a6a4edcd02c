package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type BackendConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	WebhookURL string        `yaml:"webhook_url"` // competitor-data-changed signal; empty = log only
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GenerationConfig controls per-segment video generation and merging.
type GenerationConfig struct {
	PollInterval           time.Duration  `yaml:"poll_interval"`
	DefaultEstimateSeconds int            `yaml:"default_estimate_seconds"`
	ModelEstimateSeconds   map[string]int `yaml:"model_estimate_seconds"` // video model key -> seconds
}

// ScrapeConfig controls competitor scrape polling cadences.
type ScrapeConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	BulkPollInterval time.Duration `yaml:"bulk_poll_interval"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Backend    BackendConfig    `yaml:"backend"`
	Redis      RedisConfig      `yaml:"redis"`
	Generation GenerationConfig `yaml:"generation"`
	Scrape     ScrapeConfig     `yaml:"scrape"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.ApplyDefaults()
	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.base_url is required")
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with the cadences and estimates the
// orchestrators expect.
func (c *Config) ApplyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 15 * time.Second
	}
	if c.Generation.PollInterval <= 0 {
		c.Generation.PollInterval = 3 * time.Second
	}
	if c.Generation.DefaultEstimateSeconds <= 0 {
		c.Generation.DefaultEstimateSeconds = 120
	}
	if c.Scrape.PollInterval <= 0 {
		c.Scrape.PollInterval = 2 * time.Second
	}
	if c.Scrape.BulkPollInterval <= 0 {
		c.Scrape.BulkPollInterval = 3 * time.Second
	}
}

// EstimateFor returns the generation-time prediction for a video model.
func (g GenerationConfig) EstimateFor(modelKey string) time.Duration {
	if secs, ok := g.ModelEstimateSeconds[modelKey]; ok && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Duration(g.DefaultEstimateSeconds) * time.Second
}
