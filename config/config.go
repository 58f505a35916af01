// Package config holds the settings of a conversion run.
//
// The struct carries yaml tags for dumping and mapstructure tags so viper
// can unmarshal files, environment variables and flags into it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/Schewwpid/note2PDF/container"
	"github.com/Schewwpid/note2PDF/plist"
	"github.com/Schewwpid/note2PDF/recovery"
	"github.com/Schewwpid/note2PDF/render"
	"github.com/Schewwpid/note2PDF/scene"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid value")

// Config is the effective configuration.
type Config struct {
	Workers      int     `yaml:"workers" mapstructure:"workers"`
	Resolution   float64 `yaml:"resolution" mapstructure:"resolution"`
	StrictScenes bool    `yaml:"strict_scenes" mapstructure:"strict_scenes"`
	FailFast     bool    `yaml:"fail_fast" mapstructure:"fail_fast"`
	// Compression is a flate level; 0 writes streams uncompressed.
	Compression int    `yaml:"compression" mapstructure:"compression"`
	LogLevel    string `yaml:"log_level" mapstructure:"log_level"`

	Builder Builder `yaml:"builder" mapstructure:"builder"`
	Limits  Limits  `yaml:"limits" mapstructure:"limits"`
}

// Builder configures the external scene builder program.
type Builder struct {
	Command string   `yaml:"command" mapstructure:"command"`
	Args    []string `yaml:"args,omitempty" mapstructure:"args"`
	Env     []string `yaml:"env,omitempty" mapstructure:"env"`
	Dir     string   `yaml:"dir,omitempty" mapstructure:"dir"`
}

// Limits bounds what one input may consume.
type Limits struct {
	MaxSessionSize     int64 `yaml:"max_session_size" mapstructure:"max_session_size"`
	MaxObjects         int   `yaml:"max_objects" mapstructure:"max_objects"`
	MaxDepth           int   `yaml:"max_depth" mapstructure:"max_depth"`
	MaxContainerLength int   `yaml:"max_container_length" mapstructure:"max_container_length"`
	MaxDataLength      int64 `yaml:"max_data_length" mapstructure:"max_data_length"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	l := plist.DefaultLimits()
	return Config{
		Workers:     4,
		Resolution:  render.DefaultResolution,
		Compression: flate.DefaultCompression,
		LogLevel:    "info",
		Limits: Limits{
			MaxSessionSize:     container.DefaultMaxSessionSize,
			MaxObjects:         l.MaxObjects,
			MaxDepth:           l.MaxDepth,
			MaxContainerLength: l.MaxContainerLength,
			MaxDataLength:      l.MaxDataLength,
		},
	}
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	case !(c.Resolution > 0) || math.IsInf(c.Resolution, 0):
		return fmt.Errorf("%w: resolution must be positive, got %g", ErrInvalid, c.Resolution)
	case c.Compression < flate.HuffmanOnly || c.Compression > flate.BestCompression:
		return fmt.Errorf("%w: compression %d outside [%d, %d]", ErrInvalid, c.Compression, flate.HuffmanOnly, flate.BestCompression)
	case c.Limits.MaxSessionSize < 0 || c.Limits.MaxObjects < 0 || c.Limits.MaxDepth < 0 ||
		c.Limits.MaxContainerLength < 0 || c.Limits.MaxDataLength < 0:
		return fmt.Errorf("%w: limits must not be negative", ErrInvalid)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel. Empty means info.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return lvl, nil
}

// ExtractOptions returns the container options for the limits.
func (c Config) ExtractOptions() []container.Option {
	if c.Limits.MaxSessionSize <= 0 {
		return nil
	}
	return []container.Option{container.WithMaxSessionSize(c.Limits.MaxSessionSize)}
}

// DecodeOptions returns the plist options for the limits. Zero fields keep
// the decoder defaults.
func (c Config) DecodeOptions() []plist.DecodeOption {
	return []plist.DecodeOption{plist.WithLimits(plist.Limits{
		MaxObjects:         c.Limits.MaxObjects,
		MaxDepth:           c.Limits.MaxDepth,
		MaxContainerLength: c.Limits.MaxContainerLength,
		MaxDataLength:      c.Limits.MaxDataLength,
	})}
}

// RenderOptions returns the renderer options. Callers append their logger
// and tracer.
func (c Config) RenderOptions() []render.Option {
	return []render.Option{
		render.WithResolution(c.Resolution),
		render.WithStrictScenes(c.StrictScenes),
		render.WithCompression(c.Compression),
	}
}

// Strategy returns the batch recovery strategy.
func (c Config) Strategy() recovery.Strategy {
	if c.FailFast {
		return recovery.NewStrictStrategy()
	}
	return recovery.NewLenientStrategy()
}

// SceneBuilder returns the external builder, or nil when no command is set.
func (c Config) SceneBuilder() scene.Builder {
	if c.Builder.Command == "" {
		return nil
	}
	return &scene.CommandBuilder{
		Path: c.Builder.Command,
		Args: c.Builder.Args,
		Env:  c.Builder.Env,
		Dir:  c.Builder.Dir,
	}
}
