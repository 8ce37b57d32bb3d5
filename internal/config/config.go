package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. SWMS_SERVER_ADDR.
const EnvPrefix = "SWMS"

// Config models swms.yaml.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Renderers RenderersConfig `mapstructure:"renderers" yaml:"renderers"`
	Risk      RiskConfig      `mapstructure:"risk" yaml:"risk"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Theme     ThemeConfig     `mapstructure:"theme" yaml:"theme"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type RenderersConfig struct {
	External  ExternalConfig  `mapstructure:"external" yaml:"external"`
	Chromium  ChromiumConfig  `mapstructure:"chromium" yaml:"chromium"`
	Primitive PrimitiveConfig `mapstructure:"primitive" yaml:"primitive"`
}

// ExternalConfig configures the remote rendering service. An empty endpoint
// removes the tier from the chain.
type ExternalConfig struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Retries applies to fetching a PDF by URL. The render POST is sent once.
	Retries   int           `mapstructure:"retries" yaml:"retries"`
	RetryWait time.Duration `mapstructure:"retry_wait" yaml:"retry_wait"`
}

type ChromiumConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	ExecPath  string        `mapstructure:"exec_path" yaml:"exec_path"`
	NoSandbox bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type PrimitiveConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RiskConfig selects scoring tables and jitter. Seed 0 means time seeded.
type RiskConfig struct {
	TablesFile string `mapstructure:"tables_file" yaml:"tables_file"`
	Jitter     bool   `mapstructure:"jitter" yaml:"jitter"`
	Seed       int64  `mapstructure:"seed" yaml:"seed"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// CacheConfig enables the Redis PDF cache when Addr is set.
type CacheConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type ThemeConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Variant string `mapstructure:"variant" yaml:"variant"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    2 << 20,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Renderers: RenderersConfig{
			External:  ExternalConfig{Timeout: 15 * time.Second, Retries: 0, RetryWait: 250 * time.Millisecond},
			Chromium:  ChromiumConfig{Enabled: true, Timeout: 45 * time.Second},
			Primitive: PrimitiveConfig{Timeout: 20 * time.Second},
		},
		Risk:  RiskConfig{Jitter: true},
		Store: StoreConfig{Path: ".swms/swms.db"},
		Cache: CacheConfig{TTL: 24 * time.Hour},
		Theme: ThemeConfig{Name: "swms", Variant: "default"},
	}
}

// NewViper returns a viper instance with defaults registered and environment
// overrides enabled under EnvPrefix.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v, Default())
	return v
}

// SetDefaults registers every key of cfg so env overrides and Unmarshal see
// them.
func SetDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", cfg.Server.MaxBodyBytes)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("renderers.external.endpoint", cfg.Renderers.External.Endpoint)
	v.SetDefault("renderers.external.api_key", cfg.Renderers.External.APIKey)
	v.SetDefault("renderers.external.timeout", cfg.Renderers.External.Timeout)
	v.SetDefault("renderers.external.retries", cfg.Renderers.External.Retries)
	v.SetDefault("renderers.external.retry_wait", cfg.Renderers.External.RetryWait)
	v.SetDefault("renderers.chromium.enabled", cfg.Renderers.Chromium.Enabled)
	v.SetDefault("renderers.chromium.exec_path", cfg.Renderers.Chromium.ExecPath)
	v.SetDefault("renderers.chromium.no_sandbox", cfg.Renderers.Chromium.NoSandbox)
	v.SetDefault("renderers.chromium.timeout", cfg.Renderers.Chromium.Timeout)
	v.SetDefault("renderers.primitive.timeout", cfg.Renderers.Primitive.Timeout)
	v.SetDefault("risk.tables_file", cfg.Risk.TablesFile)
	v.SetDefault("risk.jitter", cfg.Risk.Jitter)
	v.SetDefault("risk.seed", cfg.Risk.Seed)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("cache.addr", cfg.Cache.Addr)
	v.SetDefault("cache.password", cfg.Cache.Password)
	v.SetDefault("cache.db", cfg.Cache.DB)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("theme.name", cfg.Theme.Name)
	v.SetDefault("theme.variant", cfg.Theme.Variant)
}

// Load reads path (or swms.yaml from the working directory when path is
// empty) into v and decodes the result. A missing default file is not an
// error; a missing explicit file is.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("swms")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", describe(path), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if endpoint := strings.TrimSpace(c.Renderers.External.Endpoint); endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: renderers.external.endpoint %q is not an absolute URL", endpoint)
		}
	}
	for name, timeout := range map[string]time.Duration{
		"renderers.external.timeout":  c.Renderers.External.Timeout,
		"renderers.chromium.timeout":  c.Renderers.Chromium.Timeout,
		"renderers.primitive.timeout": c.Renderers.Primitive.Timeout,
	} {
		if timeout <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	if c.Renderers.External.Retries < 0 {
		return fmt.Errorf("config: renderers.external.retries must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: server.max_body_bytes must be positive")
	}
	return nil
}

// YAML renders cfg as a swms.yaml document.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func describe(path string) string {
	if path == "" {
		return "swms.yaml"
	}
	return path
}
