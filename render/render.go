// Package render paints a vector scene onto a single PDF page and writes it
// to disk atomically.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/opencontainers/go-digest"

	"github.com/Schewwpid/note2PDF/builder"
	"github.com/Schewwpid/note2PDF/fonts"
	"github.com/Schewwpid/note2PDF/ir/semantic"
	"github.com/Schewwpid/note2PDF/observability"
	"github.com/Schewwpid/note2PDF/scene"
	"github.com/Schewwpid/note2PDF/svg"
	"github.com/Schewwpid/note2PDF/writer"
)

// DefaultResolution is the declared output resolution in dots per inch.
const DefaultResolution = 300

const pointsPerInch = 72

var (
	ErrInvalidDimensions = errors.New("render: page width and height must be positive and finite")
	ErrOutputOpenFailed  = errors.New("render: cannot write output")
	ErrInvalidScene      = errors.New("render: scene is not renderable")
)

// Context carries everything a render needs. It is built once and shared by
// any number of concurrent Render calls; it holds no per-document state.
type Context struct {
	resolution float64
	logger     observability.Logger
	tracer     observability.Tracer
	writerCfg  writer.Config
	strict     bool
	info       *semantic.DocumentInfo

	fontOnce sync.Once
	font     *semantic.Font
	fontErr  error

	cidOnce sync.Once
	cidFont *semantic.Font
	cidErr  error
}

// Option configures a Context.
type Option func(*Context)

// WithResolution sets the resolution images are sampled at. Non-positive
// values keep the default.
func WithResolution(dpi float64) Option {
	return func(c *Context) {
		if dpi > 0 && !math.IsInf(dpi, 0) {
			c.resolution = dpi
		}
	}
}

func WithLogger(l observability.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(c *Context) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithStrictScenes makes an unparsable scene an error (ErrInvalidScene)
// instead of a blank page.
func WithStrictScenes(strict bool) Option {
	return func(c *Context) { c.strict = strict }
}

// WithCompression sets the flate level for page content and embedded data.
func WithCompression(level int) Option {
	return func(c *Context) { c.writerCfg.Compression = level }
}

// WithWriterConfig replaces the PDF writer settings. Output stays
// deterministic regardless of cfg.Deterministic.
func WithWriterConfig(cfg writer.Config) Option {
	return func(c *Context) { c.writerCfg = cfg }
}

// WithInfo sets the document information dictionary.
func WithInfo(info *semantic.DocumentInfo) Option {
	return func(c *Context) { c.info = info }
}

// WithFont replaces the embedded text font.
func WithFont(f *semantic.Font) Option {
	return func(c *Context) {
		if f != nil {
			c.fontOnce.Do(func() { c.font = f })
		}
	}
}

// NewContext returns a renderer context with the given options applied.
func NewContext(opts ...Option) *Context {
	c := &Context{
		resolution: DefaultResolution,
		logger:     observability.NopLogger{},
		tracer:     observability.NopTracer(),
		writerCfg:  writer.Config{Version: writer.PDF14, Compression: flate.DefaultCompression},
		info:       &semantic.DocumentInfo{Producer: "note2pdf"},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.writerCfg.Deterministic = true
	return c
}

// Resolution returns the configured resolution in DPI.
func (c *Context) Resolution() float64 { return c.resolution }

func (c *Context) textFont() (*semantic.Font, error) {
	c.fontOnce.Do(func() { c.font, c.fontErr = fonts.Default() })
	return c.font, c.fontErr
}

func (c *Context) fallbackFont() (*semantic.Font, error) {
	c.cidOnce.Do(func() { c.cidFont, c.cidErr = fonts.DefaultCID() })
	return c.cidFont, c.cidErr
}

// Result describes a written document.
type Result struct {
	Path        string
	Pages       int
	Width       float64 // points
	Height      float64 // points
	Resolution  float64
	PixelWidth  int
	PixelHeight int
	// Blank is set when the scene could not be parsed and the page was left
	// empty.
	Blank  bool
	Digest digest.Digest
	Bytes  int64
}

// Render paints sc onto one width x height page and writes the PDF to
// outputPath. The file either appears complete or not at all.
func (c *Context) Render(ctx context.Context, sc *scene.Scene, width, height float64, outputPath string) (*Result, error) {
	if !finitePositive(width) || !finitePositive(height) {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidDimensions, width, height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := c.logger.With(observability.String("output", outputPath))

	font, err := c.textFont()
	if err != nil {
		return nil, fmt.Errorf("render: load font: %w", err)
	}
	cidFont, err := c.fallbackFont()
	if err != nil {
		log.Warn("text outside WinAnsi will not be drawn", observability.Error("error", err))
		cidFont = nil
	}

	res := &Result{
		Path:        outputPath,
		Pages:       1,
		Width:       width,
		Height:      height,
		Resolution:  c.resolution,
		PixelWidth:  int(math.Round(width / pointsPerInch * c.resolution)),
		PixelHeight: int(math.Round(height / pointsPerInch * c.resolution)),
	}

	var drawing *svg.Drawing
	if sc == nil {
		err = scene.ErrNoScene
	} else {
		drawing, err = svg.Parse(sc.SVG)
	}
	if err != nil {
		if c.strict {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
		}
		log.Warn("scene is not renderable, writing a blank page", observability.Error("error", err))
		res.Blank = true
	}

	_, span := c.tracer.StartSpan(ctx, observability.SpanPaint)
	b := builder.NewBuilder().
		SetInfo(c.info).
		RegisterFont(textFontName, font).
		RegisterFont(cidFontName, cidFont)
	page := b.NewPage(width, height)
	if drawing != nil {
		if drawing.Lang != "" {
			b.SetLanguage(drawing.Lang)
		}
		for _, w := range drawing.Warnings {
			log.Debug("scene content skipped", observability.String("detail", w))
		}
		p := &painter{page: page, font: font, cidFont: cidFont, dpi: c.resolution, log: log}
		p.paint(drawing, width, height)
		span.SetTag("items", len(drawing.Items))
	}
	page.Finish()
	doc, err := b.Build()
	span.SetError(err)
	span.Finish()
	if err != nil {
		return nil, fmt.Errorf("render: build page: %w", err)
	}

	_, span = c.tracer.StartSpan(ctx, observability.SpanWrite)
	defer span.Finish()
	var buf bytes.Buffer
	if err := writer.New(c.writerCfg).Write(ctx, doc, &buf); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("render: serialise: %w", err)
	}
	if err := writeFileAtomic(outputPath, buf.Bytes()); err != nil {
		span.SetError(err)
		log.Error("cannot write output", observability.Error("error", err))
		return nil, err
	}
	res.Bytes = int64(buf.Len())
	res.Digest = digest.FromBytes(buf.Bytes())
	log.Debug("page written",
		observability.Int64("bytes", res.Bytes),
		observability.String("digest", res.Digest.String()),
	)
	return res, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place. Every failure removes the temporary file.
func writeFileAtomic(path string, data []byte) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputOpenFailed, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()
	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputOpenFailed, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputOpenFailed, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputOpenFailed, err)
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputOpenFailed, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputOpenFailed, err)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
