package config_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schewwpid/note2PDF/config"
	"github.com/Schewwpid/note2PDF/recovery"
	"github.com/Schewwpid/note2PDF/scene"
)

func TestDefaultIsValid(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 300.0, c.Resolution)
	assert.Nil(t, c.SceneBuilder())
	assert.IsType(t, &recovery.LenientStrategy{}, c.Strategy())
	assert.Len(t, c.ExtractOptions(), 1)
	assert.Len(t, c.RenderOptions(), 3)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"workers":     func(c *config.Config) { c.Workers = 0 },
		"resolution":  func(c *config.Config) { c.Resolution = -1 },
		"compression": func(c *config.Config) { c.Compression = 12 },
		"limits":      func(c *config.Config) { c.Limits.MaxDepth = -1 },
		"log level":   func(c *config.Config) { c.LogLevel = "chatty" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := config.Default()
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), config.ErrInvalid)
		})
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := config.Parse([]byte(`
workers: 2
fail_fast: true
log_level: debug
builder:
  command: /usr/local/bin/note-scene
  args: [--dpi, "72"]
limits:
  max_depth: 64
`))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, 300.0, c.Resolution, "unset keys keep defaults")
	assert.Equal(t, 64, c.Limits.MaxDepth)
	assert.IsType(t, &recovery.StrictStrategy{}, c.Strategy())

	lvl, err := c.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	b, ok := c.SceneBuilder().(*scene.CommandBuilder)
	require.True(t, ok)
	assert.Equal(t, "/usr/local/bin/note-scene", b.Path)
	assert.Equal(t, []string{"--dpi", "72"}, b.Args)

	_, err = config.Parse([]byte("workers: 0"))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestMarshalRoundTrip(t *testing.T) {
	c := config.Default()
	c.Builder.Command = "scene"
	out, err := c.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "strict_scenes: false")
	assert.Contains(t, string(out), "max_session_size: ")

	back, err := config.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString("resolution: 150\nbuilder:\n  command: scene\n")))
	v.Set("workers", 8)

	c, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 150.0, c.Resolution)
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, "scene", c.Builder.Command)
	assert.Equal(t, config.Default().Limits, c.Limits)
}

func TestBindEnvNestedKeys(t *testing.T) {
	t.Setenv("NOTE2PDF_BUILDER_COMMAND", "/usr/bin/scene-builder")
	t.Setenv("NOTE2PDF_LIMITS_MAX_DEPTH", "7")
	t.Setenv("NOTE2PDF_WORKERS", "3")

	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)

	c, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/scene-builder", c.Builder.Command)
	assert.Equal(t, 7, c.Limits.MaxDepth)
	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, config.Default().Limits.MaxObjects, c.Limits.MaxObjects)
}
