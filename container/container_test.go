package container_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schewwpid/note2PDF/container"
	ct "github.com/Schewwpid/note2PDF/container/containertest"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtractSession(t *testing.T) {
	session := []byte("bplist00 pretend")
	path := writeFile(t, "Note1.note", ct.Note("Note1", session))

	s, err := container.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Note1", s.Root)
	assert.Equal(t, "Note1/Session.plist", s.Name)
	assert.Equal(t, session, s.Data)
}

func TestExtractRootFromFirstEntry(t *testing.T) {
	data := ct.Zip(
		ct.Entry{Name: "Other/readme.txt", Data: []byte("x")},
		ct.Entry{Name: "Note1/Session.plist", Data: []byte("payload")},
	)
	_, err := container.ExtractBytes(data)
	assert.ErrorIs(t, err, container.ErrMissingSessionDescriptor)

	data = ct.Zip(
		ct.Entry{Name: "Note1/Session.plist", Data: []byte("payload"), Store: true},
		ct.Entry{Name: "Other/Session.plist", Data: []byte("ignored")},
	)
	s, err := container.ExtractBytes(data)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), s.Data)
}

func TestExtractErrors(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"not a zip", []byte("definitely not a zip archive"), container.ErrNotAnArchive},
		{"zero bytes", nil, container.ErrNotAnArchive},
		{"empty archive", ct.Zip(), container.ErrEmptyArchive},
		{"missing descriptor", ct.Zip(ct.Entry{Name: "Note1/Other.plist", Data: []byte("x")}), container.ErrMissingSessionDescriptor},
		{"empty descriptor", ct.Note("Note1", nil), container.ErrEmptySessionDescriptor},
		{"top-level descriptor", ct.Zip(ct.Entry{Name: "Session.plist", Data: []byte("x")}), container.ErrMissingSessionDescriptor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "in.note", tc.data)
			_, err := container.Extract(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestExtractSizeLimit(t *testing.T) {
	data := ct.Note("Note1", bytes.Repeat([]byte("a"), 1024))
	_, err := container.ExtractBytes(data, container.WithMaxSessionSize(100))
	assert.ErrorIs(t, err, container.ErrSessionTooLarge)

	_, err = container.ExtractBytes(data, container.WithMaxSessionSize(0))
	assert.NoError(t, err)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := container.Extract(filepath.Join(t.TempDir(), "absent.note"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractDirectory(t *testing.T) {
	_, err := container.Extract(t.TempDir())
	assert.ErrorIs(t, err, container.ErrNotAnArchive)
}

func TestIsNote(t *testing.T) {
	assert.True(t, container.IsNote("a/b/Note1.note"))
	assert.False(t, container.IsNote("Note1.NOTE"))
	assert.False(t, container.IsNote("Note1.pdf"))
	assert.False(t, container.IsNote("note"))
}
