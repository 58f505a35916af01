package render_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schewwpid/note2PDF/observability"
	"github.com/Schewwpid/note2PDF/render"
	"github.com/Schewwpid/note2PDF/scene"
)

const letter = `<svg xmlns="http://www.w3.org/2000/svg" width="612" height="792">` +
	`<rect x="72" y="72" width="100" height="50" fill="red"/></svg>`

func mustScene(t *testing.T, markup string) *scene.Scene {
	t.Helper()
	sc, err := scene.FromSVG([]byte(markup))
	require.NoError(t, err)
	return sc
}

func TestRenderLetterPage(t *testing.T) {
	out := filepath.Join(t.TempDir(), "Note1.pdf")
	rc := render.NewContext()
	sc := mustScene(t, letter)

	res, err := rc.Render(context.Background(), sc, sc.Width, sc.Height, out)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 612.0, res.Width)
	assert.Equal(t, 792.0, res.Height)
	assert.Equal(t, 300.0, res.Resolution)
	assert.Equal(t, 2550, res.PixelWidth)
	assert.Equal(t, 3300, res.PixelHeight)
	assert.False(t, res.Blank)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, int64(len(data)))
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-1.4")))
	assert.Contains(t, string(data), "/MediaBox [0 0 612 792]")
	assert.Equal(t, 1, strings.Count(string(data), "/Type /Page>>"))
	require.NoError(t, res.Digest.Validate())
}

func TestRenderIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	rc := render.NewContext()
	sc := mustScene(t, letter)

	a, err := rc.Render(context.Background(), sc, 612, 792, filepath.Join(dir, "a.pdf"))
	require.NoError(t, err)
	b, err := rc.Render(context.Background(), sc, 612, 792, filepath.Join(dir, "b.pdf"))
	require.NoError(t, err)
	assert.Equal(t, a.Digest, b.Digest)

	da, _ := os.ReadFile(a.Path)
	db, _ := os.ReadFile(b.Path)
	assert.Equal(t, da, db)
}

func TestRenderUsesCallerDimensions(t *testing.T) {
	out := filepath.Join(t.TempDir(), "wide.pdf")
	res, err := render.NewContext().Render(context.Background(), mustScene(t, letter), 800, 300, out)
	require.NoError(t, err)
	data, _ := os.ReadFile(out)
	assert.Contains(t, string(data), "/MediaBox [0 0 800 300]")
	assert.Equal(t, 800.0, res.Width)
}

func TestRenderPaintsItems(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.NRGBA{G: 255, A: 255})
	var pngData bytes.Buffer
	require.NoError(t, png.Encode(&pngData, img))
	href := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData.Bytes())

	markup := `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100" viewBox="0 0 400 200">` +
		`<path d="M10 10 L100 10 L100 100 Z" fill="#0000ff" fill-opacity="0.5" stroke="black" stroke-width="2"/>` +
		`<text x="20" y="150" font-size="24" text-anchor="middle">Hello</text>` +
		`<image x="0" y="0" width="40" height="40" href="` + href + `"/></svg>`

	out := filepath.Join(t.TempDir(), "items.pdf")
	rc := render.NewContext(render.WithCompression(0))
	_, err := rc.Render(context.Background(), mustScene(t, markup), 200, 100, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	s := string(data)
	for _, want := range []string{
		"0.5 0 0 -0.5 0 100 cm", // 400x200 viewBox on a 200x100 page
		"0 0 1 rg",
		"B\n",
		"/F1 24 Tf",
		"(Hello) Tj",
		"/Im1 Do",
		"/SMask ",
		"/ca 0.5",
		"/FontFile2 ",
	} {
		assert.Contains(t, s, want)
	}
}

func TestRenderRectanglesAndLanguage(t *testing.T) {
	markup := `<svg xmlns="http://www.w3.org/2000/svg" xml:lang="en-GB" width="200" height="100">` +
		`<rect x="10" y="20" width="30" height="40" fill="red"/>` +
		`<rect x="50" y="20" width="30" height="40" rx="5" fill="none" stroke="blue"/></svg>`

	out := filepath.Join(t.TempDir(), "rects.pdf")
	rc := render.NewContext(render.WithCompression(0))
	_, err := rc.Render(context.Background(), mustScene(t, markup), 200, 100, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "10 20 30 40 re\nf\n")
	assert.Contains(t, s, "/Lang (en-GB)")
	assert.Equal(t, 1, strings.Count(s, " re\n"), "rounded rect is drawn as a path")
	assert.Contains(t, s, " c\n")
}

func TestRenderNonLatinText(t *testing.T) {
	markup := `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100">` +
		`<text x="10" y="40" font-size="12">Hello</text>` +
		`<text x="10" y="80" font-size="12">Привет αβ</text></svg>`

	var logs bytes.Buffer
	logger := observability.NewSlogLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	out := filepath.Join(t.TempDir(), "cyrillic.pdf")
	rc := render.NewContext(render.WithCompression(0), render.WithLogger(logger))
	_, err := rc.Render(context.Background(), mustScene(t, markup), 200, 100, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	s := string(data)
	for _, want := range []string{
		"/F1 12 Tf",
		"/F2 12 Tf",
		"/Subtype /Type0",
		"/Encoding /Identity-H",
		"/Subtype /CIDFontType2",
		"/ToUnicode ",
		"beginbfchar",
	} {
		assert.Contains(t, s, want)
	}
	assert.NotContains(t, s, "(??????", "Cyrillic must not fall back to replacement characters")
	assert.NotContains(t, logs.String(), "no glyph")
}

func TestRenderWarnsAboutUndrawableText(t *testing.T) {
	markup := `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100">` +
		`<text x="10" y="40">漢字 ok</text></svg>`

	var logs bytes.Buffer
	logger := observability.NewSlogLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	out := filepath.Join(t.TempDir(), "han.pdf")
	rc := render.NewContext(render.WithLogger(logger))
	res, err := rc.Render(context.Background(), mustScene(t, markup), 200, 100, out)
	require.NoError(t, err)
	assert.False(t, res.Blank)

	assert.Contains(t, logs.String(), "text characters have no glyph")
	assert.Contains(t, logs.String(), "漢字")
}

func TestRenderInvalidSceneIsBlank(t *testing.T) {
	out := filepath.Join(t.TempDir(), "blank.pdf")
	sc := &scene.Scene{SVG: []byte("<svg"), Width: 612, Height: 792}

	res, err := render.NewContext().Render(context.Background(), sc, 612, 792, out)
	require.NoError(t, err)
	assert.True(t, res.Blank)
	_, err = os.Stat(out)
	assert.NoError(t, err)

	res, err = render.NewContext().Render(context.Background(), nil, 612, 792, out)
	require.NoError(t, err)
	assert.True(t, res.Blank)
}

func TestRenderStrictScene(t *testing.T) {
	out := filepath.Join(t.TempDir(), "strict.pdf")
	sc := &scene.Scene{SVG: []byte("<html/>"), Width: 612, Height: 792}

	_, err := render.NewContext(render.WithStrictScenes(true)).Render(context.Background(), sc, 612, 792, out)
	require.ErrorIs(t, err, render.ErrInvalidScene)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderInvalidDimensions(t *testing.T) {
	rc := render.NewContext()
	for _, dims := range [][2]float64{{0, 792}, {612, -1}} {
		_, err := rc.Render(context.Background(), mustScene(t, letter), dims[0], dims[1], filepath.Join(t.TempDir(), "x.pdf"))
		assert.ErrorIs(t, err, render.ErrInvalidDimensions)
	}
}

func TestRenderOutputOpenFailedLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "missing", "out.pdf")

	_, err := render.NewContext().Render(context.Background(), mustScene(t, letter), 612, 792, out)
	require.ErrorIs(t, err, render.ErrOutputOpenFailed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenderReplacesExistingOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	_, err := render.NewContext().Render(context.Background(), mustScene(t, letter), 612, 792, out)
	require.NoError(t, err)
	data, _ := os.ReadFile(out)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	entries, _ := os.ReadDir(filepath.Dir(out))
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := render.NewContext().Render(ctx, mustScene(t, letter), 612, 792, filepath.Join(t.TempDir(), "x.pdf"))
	assert.ErrorIs(t, err, context.Canceled)
}
