// Package config loads the settings shared by the aio-state CLI and the
// sandbox server from an optional yaml file overlaid with environment
// variables.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/adobe/aio-lib-state-go/pkg/state"
)

// EnvPrefix namespaces the environment overlay: log.level -> AIO_STATE_LOG_LEVEL.
const EnvPrefix = "AIO_STATE"

type Config struct {
	Namespace string        `mapstructure:"namespace"`
	APIKey    string        `mapstructure:"apikey"`
	Region    string        `mapstructure:"region"`
	Env       string        `mapstructure:"env"`
	Endpoint  string        `mapstructure:"endpoint"`
	Retry     RetryConfig   `mapstructure:"retry"`
	Log       LogConfig     `mapstructure:"log"`
	Sandbox   SandboxConfig `mapstructure:"sandbox"`
}

type RetryConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	LogRetryAfter time.Duration `mapstructure:"log_retry_after"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SandboxConfig struct {
	Addr         string            `mapstructure:"addr"`
	Backend      string            `mapstructure:"backend"` // "memory" | "redis"
	Latency      time.Duration     `mapstructure:"latency"`
	Fail         string            `mapstructure:"fail"`
	RateLimit    float64           `mapstructure:"rate_limit"`
	Burst        int               `mapstructure:"burst"`
	MaxValueSize int               `mapstructure:"max_value_size"`
	APIKeys      map[string]string `mapstructure:"api_keys"`
	Origins      []string          `mapstructure:"allowed_origins"`
	Redis        RedisConfig       `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Load reads the yaml file at path (skipped when empty), overlays
// environment variables, and returns Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Runtime-provided credentials win over nothing, lose to explicit AIO_STATE_* values.
	_ = v.BindEnv("namespace", EnvPrefix+"_NAMESPACE", state.EnvNamespace)
	_ = v.BindEnv("apikey", EnvPrefix+"_APIKEY", state.EnvAPIKey)
	_ = v.BindEnv("env", EnvPrefix+"_ENV", state.EnvCLIEnv)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("namespace", "")
	v.SetDefault("apikey", "")
	v.SetDefault("region", state.DefaultRegion)
	v.SetDefault("env", state.ProdEnv)
	v.SetDefault("endpoint", "")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", 250*time.Millisecond)
	v.SetDefault("retry.max_delay", 2*time.Second)
	v.SetDefault("retry.log_retry_after", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("sandbox.addr", ":8787")
	v.SetDefault("sandbox.backend", "memory")
	v.SetDefault("sandbox.latency", time.Duration(0))
	v.SetDefault("sandbox.fail", "")
	v.SetDefault("sandbox.rate_limit", 0.0)
	v.SetDefault("sandbox.burst", 10)
	v.SetDefault("sandbox.max_value_size", state.MaxValueSize)
	v.SetDefault("sandbox.allowed_origins", []string{})
	v.SetDefault("sandbox.redis.addr", "localhost:6379")
	v.SetDefault("sandbox.redis.password", "")
	v.SetDefault("sandbox.redis.db", 0)
}

// StateConfig converts the loaded settings into a client configuration.
func (c *Config) StateConfig() state.Config {
	return state.Config{
		Namespace: c.Namespace,
		APIKey:    c.APIKey,
		Region:    c.Region,
		Env:       c.Env,
		Endpoint:  c.Endpoint,
		Retry: &state.RetryPolicy{
			MaxRetries: c.Retry.MaxRetries,
			BaseDelay:  c.Retry.BaseDelay,
			MaxDelay:   c.Retry.MaxDelay,
		},
		LogLevel:      c.Log.Level,
		LogFormat:     c.Log.Format,
		LogRetryAfter: c.Retry.LogRetryAfter,
	}
}
