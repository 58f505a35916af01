package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// SetDefaults registers every key of Default with v, so environment
// variables bind even when no file sets the key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("workers", d.Workers)
	v.SetDefault("resolution", d.Resolution)
	v.SetDefault("strict_scenes", d.StrictScenes)
	v.SetDefault("fail_fast", d.FailFast)
	v.SetDefault("compression", d.Compression)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("builder.command", d.Builder.Command)
	v.SetDefault("builder.args", d.Builder.Args)
	v.SetDefault("builder.env", d.Builder.Env)
	v.SetDefault("builder.dir", d.Builder.Dir)
	v.SetDefault("limits.max_session_size", d.Limits.MaxSessionSize)
	v.SetDefault("limits.max_objects", d.Limits.MaxObjects)
	v.SetDefault("limits.max_depth", d.Limits.MaxDepth)
	v.SetDefault("limits.max_container_length", d.Limits.MaxContainerLength)
	v.SetDefault("limits.max_data_length", d.Limits.MaxDataLength)
}

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "NOTE2PDF"

// BindEnv makes v read NOTE2PDF_* environment variables. Nested keys use
// underscores: limits.max_depth is NOTE2PDF_LIMITS_MAX_DEPTH.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper unmarshals and validates the settings held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Parse reads YAML over the defaults.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
