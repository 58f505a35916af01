// Package scene defines the boundary to the scene builder: the component
// that interprets a decoded note graph and draws it as vector markup.
package scene

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Schewwpid/note2PDF/plist"
	"github.com/Schewwpid/note2PDF/svg"
)

// ErrNoScene is returned by builders that produce nothing for a graph.
var ErrNoScene = errors.New("scene: builder produced no scene")

// Scene is a vector drawing plus the page size it is meant for, in points.
type Scene struct {
	SVG    []byte
	Width  float64
	Height float64
}

// Validate checks that the page size is usable.
func (s *Scene) Validate() error {
	if s == nil {
		return ErrNoScene
	}
	if !positive(s.Width) || !positive(s.Height) {
		return fmt.Errorf("scene: invalid page size %gx%g", s.Width, s.Height)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Builder turns a decoded session graph into a scene. The graph keeps its
// UID markers; plist.Keyed resolves them.
type Builder interface {
	Build(ctx context.Context, graph plist.Value) (*Scene, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, graph plist.Value) (*Scene, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, graph plist.Value) (*Scene, error) {
	return f(ctx, graph)
}

// FromSVG wraps markup, taking the page size from its root element.
func FromSVG(markup []byte) (*Scene, error) {
	w, h, err := Dimensions(markup)
	if err != nil {
		return nil, err
	}
	return &Scene{SVG: markup, Width: w, Height: h}, nil
}

// Dimensions returns the width and height of the root svg element in points.
func Dimensions(markup []byte) (float64, float64, error) {
	return svg.Size(markup)
}
