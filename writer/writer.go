// Package writer serialises a semantic document into PDF bytes.
package writer

import (
	"context"
	"io"

	"github.com/Schewwpid/note2PDF/ir/semantic"
)

type PDFVersion string

const (
	PDF14 PDFVersion = "1.4"
	PDF17 PDFVersion = "1.7"
)

// Config controls serialisation.
type Config struct {
	Version PDFVersion
	// Compression is the flate level applied to content, image and font
	// streams. Zero writes them uncompressed.
	Compression int
	// Deterministic derives /ID from the serialised objects instead of
	// random bytes, so equal documents produce equal files.
	Deterministic bool
}

// Writer emits a complete PDF file for doc.
type Writer interface {
	Write(ctx context.Context, doc *semantic.Document, w io.Writer) error
}

// WriterBuilder assembles a Writer.
type WriterBuilder struct{ cfg Config }

// WithConfig replaces the serialisation settings.
func (b *WriterBuilder) WithConfig(cfg Config) *WriterBuilder {
	b.cfg = cfg
	return b
}

// Build returns the configured Writer.
func (b *WriterBuilder) Build() Writer { return &impl{cfg: b.cfg} }

// New is shorthand for (&WriterBuilder{}).WithConfig(cfg).Build().
func New(cfg Config) Writer { return (&WriterBuilder{}).WithConfig(cfg).Build() }
