package scene_test

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schewwpid/note2PDF/plist"
	pt "github.com/Schewwpid/note2PDF/plist/plisttest"
	"github.com/Schewwpid/note2PDF/scene"
	"github.com/Schewwpid/note2PDF/svg"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, (&scene.Scene{Width: 612, Height: 792}).Validate())
	assert.ErrorIs(t, (*scene.Scene)(nil).Validate(), scene.ErrNoScene)
	for _, bad := range []scene.Scene{
		{Width: 0, Height: 10},
		{Width: 10, Height: -1},
		{Width: math.Inf(1), Height: 10},
		{Width: 10, Height: math.NaN()},
	} {
		assert.Error(t, bad.Validate())
	}
}

func TestBuilderFunc(t *testing.T) {
	var seen plist.Value
	b := scene.BuilderFunc(func(_ context.Context, g plist.Value) (*scene.Scene, error) {
		seen = g
		return &scene.Scene{Width: 1, Height: 2}, nil
	})
	sc, err := b.Build(context.Background(), plist.String("graph"))
	require.NoError(t, err)
	assert.Equal(t, plist.String("graph"), seen)
	assert.Equal(t, 2.0, sc.Height)
}

func TestFromSVG(t *testing.T) {
	sc, err := scene.FromSVG([]byte(`<svg width="612pt" height="11in"/>`))
	require.NoError(t, err)
	assert.Equal(t, 612.0, sc.Width)
	assert.Equal(t, 792.0, sc.Height)

	_, err = scene.FromSVG([]byte(`<svg/>`))
	assert.ErrorIs(t, err, svg.ErrInvalid)
}

func shellScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "builder.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestCommandBuilderSeesUIDStrings(t *testing.T) {
	out := filepath.Join(t.TempDir(), "stdin.xml")
	script := shellScript(t, `cat > "$1"
echo '<svg width="612" height="792"/>'
`)
	b := &scene.CommandBuilder{Path: script, Args: []string{out}}

	sc, err := b.Build(context.Background(), pt.Note1())
	require.NoError(t, err)
	assert.Equal(t, 612.0, sc.Width)
	assert.Equal(t, 792.0, sc.Height)

	input, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(input), "<string>UID:3</string>")
}

func TestCommandBuilderFailures(t *testing.T) {
	failing := shellScript(t, "echo boom >&2\nexit 3\n")
	_, err := (&scene.CommandBuilder{Path: failing}).Build(context.Background(), plist.Int(1))
	require.Error(t, err)
	var exitErr *exec.ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Contains(t, err.Error(), "boom")

	silent := shellScript(t, "exit 0\n")
	_, err = (&scene.CommandBuilder{Path: silent}).Build(context.Background(), plist.Int(1))
	assert.ErrorIs(t, err, scene.ErrNoScene)

	_, err = (&scene.CommandBuilder{}).Build(context.Background(), plist.Int(1))
	assert.Error(t, err)
}
