package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const envPrefix = "CYBERTRACE"

// newViper builds a pre-configured Viper instance: YAML format, environment
// override with the CYBERTRACE_ prefix, and dots/dashes in keys mapped to
// underscores (so `matcher.cross_threshold` becomes
// CYBERTRACE_MATCHER_CROSS_THRESHOLD).
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal failed: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// Load reads configuration from the given YAML file, layered under
// environment variables, then applies defaults and validates.  An empty path
// loads from environment and defaults only.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from environment variables and defaults alone,
// for containerized deployments with no config file mounted.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// Watch reloads the file at path whenever it changes and invokes onChange
// with the freshly validated Config.  Reload errors are reported through
// onError and the previous configuration stays in effect.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on failure.  For use in main() only.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
