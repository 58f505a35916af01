package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Schewwpid/note2PDF/coords"
	"github.com/Schewwpid/note2PDF/svg"
)

func TestPageMatrixStretchesAndFlips(t *testing.T) {
	m := pageMatrix(svg.Rect{X: 10, Y: 20, W: 100, H: 200}, 612, 792)

	assert.InDelta(t, 0, m.Transform(coords.Point{X: 10, Y: 20}).X, 1e-9)
	assert.InDelta(t, 792, m.Transform(coords.Point{X: 10, Y: 20}).Y, 1e-9)
	far := m.Transform(coords.Point{X: 110, Y: 220})
	assert.InDelta(t, 612, far.X, 1e-9)
	assert.InDelta(t, 0, far.Y, 1e-9)
}

func TestPageMatrixWithoutBoundsUsesPage(t *testing.T) {
	m := pageMatrix(svg.Rect{}, 612, 792)
	assert.Equal(t, coords.Matrix{1, 0, 0, -1, 0, 792}, m)
}

func TestDownsample(t *testing.T) {
	big := image.NewRGBA(image.Rect(0, 0, 1000, 500))
	got := downsample(big, 72, 72, 300)
	assert.Equal(t, image.Rect(0, 0, 300, 300), got.Bounds())

	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Same(t, small, downsample(small, 72, 72, 300).(*image.RGBA))

	// A tiny placement still keeps one pixel.
	assert.Equal(t, image.Rect(0, 0, 1, 1), downsample(big, 0.01, 0.01, 300).Bounds())
}
