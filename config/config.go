// Package config loads memotl settings from a config file, .env files and
// MEMOTL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ZaguanLabs/memotl"
)

// EnvPrefix is the prefix of environment overrides, e.g. MEMOTL_SERVICE or
// MEMOTL_OLLAMA_URL.
const EnvPrefix = "MEMOTL"

// Config is the full memotl configuration.
type Config struct {
	Service    string `mapstructure:"service"`
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`
	Enabled    bool   `mapstructure:"enabled"`

	Ollama    OllamaConfig    `mapstructure:"ollama"`
	LMStudio  LMStudioConfig  `mapstructure:"lmstudio"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Timeouts  TimeoutConfig   `mapstructure:"timeouts"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type OllamaConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

type LMStudioConfig struct {
	URL         string  `mapstructure:"url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// CacheConfig selects where the snapshot lives. A non-empty RedisURL wins
// over File.
type CacheConfig struct {
	File     string `mapstructure:"file"`
	RedisURL string `mapstructure:"redis_url"`
	RedisKey string `mapstructure:"redis_key"`
}

type TimeoutConfig struct {
	Backend time.Duration `mapstructure:"backend"` // Per backend call
	Wait    time.Duration `mapstructure:"wait"`    // Waiting on another caller's in-flight text, 0 = unbounded
}

type RetryConfig struct {
	MaxRetries int `mapstructure:"max_retries"` // 0 disables retries
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"` // 0 disables rate limiting
}

type BreakerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Failures uint32        `mapstructure:"failures"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Service:    "ollama",
		SourceLang: "ja",
		TargetLang: "zh-CN",
		Enabled:    true,
		Ollama: OllamaConfig{
			URL:   "http://localhost:11434",
			Model: "llama2",
		},
		LMStudio: LMStudioConfig{
			URL:         "http://localhost:1234",
			Model:       "local-model",
			Temperature: 0.1,
		},
		Cache: CacheConfig{
			File:     "./cache/translations.json",
			RedisKey: "memotl:translations",
		},
		Timeouts: TimeoutConfig{
			Backend: 30 * time.Second,
			Wait:    2 * time.Minute,
		},
		Retry: RetryConfig{MaxRetries: 2},
		Breaker: BreakerConfig{
			Enabled:  true,
			Failures: 5,
			Cooldown: 30 * time.Second,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration. Values come, lowest priority first, from the
// defaults, the config file at path, a .env file in the working directory and
// MEMOTL_* environment variables. An empty path skips the file. A missing
// file is not an error.
func Load(path string) (Config, error) {
	// Best effort: .env is optional
	_ = godotenv.Load()

	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path. The format follows the file extension and
// defaults to YAML.
func Save(path string, cfg Config) error {
	v := viper.New()
	for key, value := range flatten(cfg) {
		v.Set(key, value)
	}
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - config directory is user-owned
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Backend resolves the configured service into a memotl.BackendConfig.
func (c Config) Backend() memotl.BackendConfig {
	bc := memotl.BackendConfig{
		Service:             memotl.ParseService(c.Service),
		OllamaURL:           c.Ollama.URL,
		OllamaModel:         c.Ollama.Model,
		LMStudioURL:         c.LMStudio.URL,
		LMStudioModel:       c.LMStudio.Model,
		LMStudioTemperature: c.LMStudio.Temperature,
		Timeout:             c.Timeouts.Backend,
	}

	if c.Retry.MaxRetries > 0 {
		retry := memotl.DefaultRetryConfig()
		retry.MaxRetries = c.Retry.MaxRetries
		bc.Retry = &retry
	}
	if c.RateLimit.RequestsPerMinute > 0 {
		bc.RateLimit = &memotl.RateLimitConfig{RequestsPerMinute: c.RateLimit.RequestsPerMinute}
	}
	if c.Breaker.Enabled {
		bc.Breaker = &memotl.BreakerConfig{
			Failures: c.Breaker.Failures,
			Cooldown: c.Breaker.Cooldown,
		}
	}
	return bc
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range flatten(Default()) {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// flatten lists every setting under its viper key. Durations are written as
// strings so saved files stay readable.
func flatten(c Config) map[string]any {
	return map[string]any{
		"service":                        c.Service,
		"source_lang":                    c.SourceLang,
		"target_lang":                    c.TargetLang,
		"enabled":                        c.Enabled,
		"ollama.url":                     c.Ollama.URL,
		"ollama.model":                   c.Ollama.Model,
		"lmstudio.url":                   c.LMStudio.URL,
		"lmstudio.model":                 c.LMStudio.Model,
		"lmstudio.temperature":           c.LMStudio.Temperature,
		"cache.file":                     c.Cache.File,
		"cache.redis_url":                c.Cache.RedisURL,
		"cache.redis_key":                c.Cache.RedisKey,
		"timeouts.backend":               c.Timeouts.Backend.String(),
		"timeouts.wait":                  c.Timeouts.Wait.String(),
		"retry.max_retries":              c.Retry.MaxRetries,
		"rate_limit.requests_per_minute": c.RateLimit.RequestsPerMinute,
		"breaker.enabled":                c.Breaker.Enabled,
		"breaker.failures":               c.Breaker.Failures,
		"breaker.cooldown":               c.Breaker.Cooldown.String(),
		"server.host":                    c.Server.Host,
		"server.port":                    c.Server.Port,
		"log.level":                      c.Log.Level,
		"log.format":                     c.Log.Format,
	}
}
