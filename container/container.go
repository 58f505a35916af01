// Package container opens note archives and pulls out the session
// descriptor.
//
// A note file is a zip archive whose first entry names a root folder. The
// session graph lives at "<root>/Session.plist" as a binary property list.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// SessionFile is the descriptor name inside the root folder.
const SessionFile = "Session.plist"

// Extension is the file extension of note archives.
const Extension = ".note"

// DefaultMaxSessionSize bounds the uncompressed descriptor size.
const DefaultMaxSessionSize int64 = 512 << 20

var (
	// ErrNotAnArchive is returned when the input is not a zip structure.
	ErrNotAnArchive = errors.New("container: not a zip archive")

	// ErrEmptyArchive is returned when the archive has no entries.
	ErrEmptyArchive = errors.New("container: archive is empty")

	// ErrMissingSessionDescriptor is returned when <root>/Session.plist is absent.
	ErrMissingSessionDescriptor = errors.New("container: session descriptor not found")

	// ErrEmptySessionDescriptor is returned when the descriptor has zero length.
	ErrEmptySessionDescriptor = errors.New("container: session descriptor is empty")

	// ErrSessionTooLarge is returned when the descriptor exceeds the size limit.
	ErrSessionTooLarge = errors.New("container: session descriptor exceeds size limit")
)

// Session is the extracted descriptor.
type Session struct {
	Root string // root folder name, taken from the first entry
	Name string // entry name of the descriptor
	Data []byte
}

// Option configures extraction.
type Option func(*options)

type options struct {
	maxSessionSize int64
}

// WithMaxSessionSize limits the uncompressed descriptor size. Non-positive
// values restore the default.
func WithMaxSessionSize(n int64) Option {
	return func(o *options) {
		if n <= 0 {
			n = DefaultMaxSessionSize
		}
		o.maxSessionSize = n
	}
}

func newOptions(opts []Option) options {
	o := options{maxSessionSize: DefaultMaxSessionSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Extract opens the archive at path and returns its session descriptor. The
// archive is closed before Extract returns. Errors from the open call itself
// (missing file, permissions) are returned as is; everything else wraps one
// of the package sentinels.
func Extract(path string, opts ...Option) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotAnArchive)
	}
	s, err := extract(f, info.Size(), newOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ExtractReader reads an archive of the given size from r.
func ExtractReader(r io.ReaderAt, size int64, opts ...Option) (*Session, error) {
	return extract(r, size, newOptions(opts))
}

// ExtractBytes reads an archive held in memory.
func ExtractBytes(data []byte, opts ...Option) (*Session, error) {
	return ExtractReader(bytes.NewReader(data), int64(len(data)), opts...)
}

func extract(r io.ReaderAt, size int64, o options) (*Session, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnArchive, err)
	}
	if len(zr.File) == 0 {
		return nil, ErrEmptyArchive
	}

	root, _, _ := strings.Cut(zr.File[0].Name, "/")
	name := root + "/" + SessionFile

	// The last entry wins when a name repeats.
	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == name {
			entry = f
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSessionDescriptor, name)
	}
	if entry.UncompressedSize64 > uint64(o.maxSessionSize) {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrSessionTooLarge, name, entry.UncompressedSize64)
	}

	data, err := readEntry(entry, o.maxSessionSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySessionDescriptor, name)
	}
	return &Session{Root: root, Name: name, Data: data}, nil
}

// readEntry reads at most limit bytes, failing if the entry holds more than
// its header claims.
func readEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnArchive, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnArchive, err)
	}
	if int64(len(data)) > limit {
		return nil, ErrSessionTooLarge
	}
	return data, nil
}

// IsNote reports whether path names a note archive. The extension match is
// case-sensitive.
func IsNote(path string) bool {
	return filepath.Ext(path) == Extension
}
