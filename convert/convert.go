// Package convert drives the note to PDF pipeline: extract the session
// descriptor, decode it, build a scene and render it.
package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Schewwpid/note2PDF/container"
	"github.com/Schewwpid/note2PDF/observability"
	"github.com/Schewwpid/note2PDF/plist"
	"github.com/Schewwpid/note2PDF/render"
	"github.com/Schewwpid/note2PDF/scene"
)

// Renderer writes a scene to a PDF file. *render.Context implements it.
type Renderer interface {
	Render(ctx context.Context, sc *scene.Scene, width, height float64, outputPath string) (*render.Result, error)
}

// Status is the tri-state outcome of one file.
type Status int

const (
	StatusConverted Status = iota
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// Result is the outcome of converting one input file.
type Result struct {
	Input  string
	Output string
	Status Status
	// Err is a *Error for failed files and wraps ErrNotNote for skipped ones.
	Err    error
	Render *render.Result
}

// Converter runs the pipeline for single files. The zero value is not
// usable: Builder must be set. Other fields have defaults.
type Converter struct {
	// Extract reads the session descriptor. Defaults to container.Extract.
	Extract func(path string) (*container.Session, error)
	// DecodeOptions are passed to plist.Decode.
	DecodeOptions []plist.DecodeOption
	Builder       scene.Builder
	// Renderer defaults to render.NewContext().
	Renderer Renderer
	Logger   observability.Logger
	Tracer   observability.Tracer
}

// OutputPath returns in with its extension replaced by .pdf.
func OutputPath(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ".pdf"
}

func (c *Converter) logger() observability.Logger {
	if c.Logger == nil {
		return observability.NopLogger{}
	}
	return c.Logger
}

func (c *Converter) tracer() observability.Tracer {
	if c.Tracer == nil {
		return observability.NopTracer()
	}
	return c.Tracer
}

// ConvertFile converts in to out (OutputPath(in) when out is empty). It never
// panics; every failure is reported in the Result.
func (c *Converter) ConvertFile(ctx context.Context, in, out string) (res Result) {
	if out == "" {
		out = OutputPath(in)
	}
	res = Result{Input: in, Output: out}
	if !container.IsNote(in) {
		res.Status = StatusSkipped
		res.Err = fmt.Errorf("%w: %s", ErrNotNote, in)
		return res
	}

	log := c.logger().With(observability.String("file", in))
	ctx, span := c.tracer().StartSpan(ctx, observability.SpanConvert)
	defer span.Finish()

	stage := StageExtract
	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Err = &Error{Path: in, Stage: stage, Err: err}
		span.SetError(res.Err)
		log.Error("conversion failed", observability.String("stage", string(stage)), observability.Error("error", err))
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			if stage == StageBuild {
				err = fmt.Errorf("%w: %w", ErrSceneBuildFailed, err)
			}
			res = fail(err)
		}
	}()

	log.Info("processing file")

	// Extract.
	sess, err := traced(ctx, c.tracer(), observability.SpanExtract, func(context.Context) (*container.Session, error) {
		extract := c.Extract
		if extract == nil {
			extract = func(p string) (*container.Session, error) { return container.Extract(p) }
		}
		return extract(in)
	})
	if err != nil {
		return fail(err)
	}
	log.Debug("session descriptor extracted", observability.String("root", sess.Root), observability.Int("bytes", len(sess.Data)))

	// Decode.
	stage = StageDecode
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	graph, err := traced(ctx, c.tracer(), observability.SpanDecode, func(context.Context) (plist.Value, error) {
		return plist.Decode(sess.Data, c.DecodeOptions...)
	})
	if err != nil {
		return fail(err)
	}
	log.Debug("session decoded", observability.Int("uids", plist.CountUIDs(graph)))

	// Build.
	stage = StageBuild
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	sc, err := traced(ctx, c.tracer(), observability.SpanBuild, func(ctx context.Context) (*scene.Scene, error) {
		if c.Builder == nil {
			return nil, fmt.Errorf("%w: no scene builder configured", ErrSceneBuildFailed)
		}
		sc, err := c.Builder.Build(ctx, graph)
		if err == nil {
			err = sc.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSceneBuildFailed, err)
		}
		return sc, nil
	})
	if err != nil {
		return fail(err)
	}

	// Render.
	stage = StageRender
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	renderer := c.Renderer
	if renderer == nil {
		renderer = render.NewContext(render.WithLogger(c.logger()), render.WithTracer(c.tracer()))
	}
	rr, err := traced(ctx, c.tracer(), observability.SpanRender, func(ctx context.Context) (*render.Result, error) {
		return renderer.Render(ctx, sc, sc.Width, sc.Height, out)
	})
	if err != nil {
		return fail(err)
	}

	res.Status = StatusConverted
	res.Render = rr
	log.Info("pdf saved",
		observability.String("output", out),
		observability.Float("width", rr.Width),
		observability.Float("height", rr.Height),
		observability.String("digest", rr.Digest.String()),
	)
	return res
}

// traced runs fn inside a span.
func traced[T any](ctx context.Context, tr observability.Tracer, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tr.StartSpan(ctx, name)
	defer span.Finish()
	v, err := fn(ctx)
	if err != nil {
		span.SetError(err)
	}
	return v, err
}
