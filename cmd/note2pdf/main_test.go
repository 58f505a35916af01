package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schewwpid/note2PDF/container/containertest"
	pt "github.com/Schewwpid/note2PDF/plist/plisttest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "note2pdf dev\n", out)
}

func TestConfigDump(t *testing.T) {
	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "resolution: 300")
	assert.Contains(t, out, "builder:")
}

func TestConfigDumpReadsNestedEnv(t *testing.T) {
	t.Setenv("NOTE2PDF_BUILDER_COMMAND", "/usr/bin/scene-builder")
	t.Setenv("NOTE2PDF_LIMITS_MAX_DEPTH", "7")

	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "command: /usr/bin/scene-builder")
	assert.Contains(t, out, "max_depth: 7")
}

func TestPlistCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Note1.note")
	require.NoError(t, os.WriteFile(in, containertest.Note("Note1", pt.Binary(pt.Note1())), 0o644))

	out, err := run(t, "plist", in)
	require.NoError(t, err)
	assert.Contains(t, out, "<string>UID:3</string>")

	xmlPath := filepath.Join(dir, "Session.xml")
	_, err = run(t, "plist", in, "-o", xmlPath)
	require.NoError(t, err)
	data, err := os.ReadFile(xmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<key>w</key>")
}

func TestConvertNeedsBuilder(t *testing.T) {
	_, err := run(t, "convert", t.TempDir())
	assert.ErrorContains(t, err, "no scene builder")
}
