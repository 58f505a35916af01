package svg

import (
	"fmt"
	"math"
	"strings"

	"github.com/Schewwpid/note2PDF/coords"
)

// ParseTransform parses an SVG transform list. Transforms compose left to
// right: the rightmost one applies to the geometry first.
func ParseTransform(s string) (coords.Matrix, error) {
	m := coords.Identity()
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open <= 0 || end < open {
			return coords.Identity(), fmt.Errorf("invalid transform %q", s)
		}
		name := strings.TrimSpace(rest[:open])
		args, err := parseNumbers(rest[open+1 : end])
		if err != nil {
			return coords.Identity(), fmt.Errorf("invalid transform %q: %w", s, err)
		}
		t, err := transformFunc(name, args)
		if err != nil {
			return coords.Identity(), fmt.Errorf("invalid transform %q: %w", s, err)
		}
		m = t.Multiply(m)
		rest = strings.TrimLeft(rest[end+1:], " \t\r\n,")
	}
	return m, nil
}

func transformFunc(name string, a []float64) (coords.Matrix, error) {
	switch name {
	case "matrix":
		if len(a) == 6 {
			return coords.Matrix{a[0], a[1], a[2], a[3], a[4], a[5]}, nil
		}
	case "translate":
		switch len(a) {
		case 1:
			return coords.Translate(a[0], 0), nil
		case 2:
			return coords.Translate(a[0], a[1]), nil
		}
	case "scale":
		switch len(a) {
		case 1:
			return coords.Scale(a[0], a[0]), nil
		case 2:
			return coords.Scale(a[0], a[1]), nil
		}
	case "rotate":
		switch len(a) {
		case 1:
			return coords.Rotate(a[0] * math.Pi / 180), nil
		case 3:
			// translate(cx,cy) rotate(a) translate(-cx,-cy)
			r := coords.Translate(-a[1], -a[2]).
				Multiply(coords.Rotate(a[0] * math.Pi / 180)).
				Multiply(coords.Translate(a[1], a[2]))
			return r, nil
		}
	case "skewX":
		if len(a) == 1 {
			return coords.SkewX(a[0] * math.Pi / 180), nil
		}
	case "skewY":
		if len(a) == 1 {
			return coords.SkewY(a[0] * math.Pi / 180), nil
		}
	default:
		return coords.Identity(), fmt.Errorf("unknown function %q", name)
	}
	return coords.Identity(), fmt.Errorf("%s takes a different number of arguments than %d", name, len(a))
}
