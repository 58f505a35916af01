package svg

import (
	"math"

	"github.com/Schewwpid/note2PDF/contentstream"
)

// kappa places cubic control points for a quarter ellipse.
const kappa = 0.5522847498307936

// basicShape converts rect, circle, ellipse, line, polyline and polygon
// elements to a path. The second result is the box of a rect without
// rounded corners; the third reports whether fill applies.
func basicShape(n *node, vp viewport, fontSize float64) (*contentstream.Path, *Rect, bool) {
	p := &contentstream.Path{}
	lx := func(name string) float64 { return attrLength(n, name, vp.w, fontSize, 0) }
	ly := func(name string) float64 { return attrLength(n, name, vp.h, fontSize, 0) }
	ld := func(name string) float64 { return attrLength(n, name, vp.diagonal(), fontSize, 0) }

	switch n.name {
	case "rect":
		x, y, w, h := lx("x"), ly("y"), lx("width"), ly("height")
		if w <= 0 || h <= 0 {
			return p, nil, true
		}
		rx, hasRX := optionalLength(n, "rx", vp.w, fontSize)
		ry, hasRY := optionalLength(n, "ry", vp.h, fontSize)
		switch {
		case hasRX && !hasRY:
			ry = rx
		case hasRY && !hasRX:
			rx = ry
		}
		rx = math.Min(math.Max(rx, 0), w/2)
		ry = math.Min(math.Max(ry, 0), h/2)
		roundedRect(p, x, y, w, h, rx, ry)
		if rx == 0 || ry == 0 {
			return p, &Rect{X: x, Y: y, W: w, H: h}, true
		}
		return p, nil, true

	case "circle":
		r := ld("r")
		if r > 0 {
			ellipse(p, lx("cx"), ly("cy"), r, r)
		}
		return p, nil, true

	case "ellipse":
		rx, ry := lx("rx"), ly("ry")
		if rx > 0 && ry > 0 {
			ellipse(p, lx("cx"), ly("cy"), rx, ry)
		}
		return p, nil, true

	case "line":
		p.MoveTo(lx("x1"), ly("y1"))
		p.LineTo(lx("x2"), ly("y2"))
		return p, nil, false

	case "polyline", "polygon":
		pts, _ := parseNumbers(n.attrs["points"])
		// An odd trailing coordinate is dropped.
		for i := 0; i+1 < len(pts); i += 2 {
			if i == 0 {
				p.MoveTo(pts[i], pts[i+1])
			} else {
				p.LineTo(pts[i], pts[i+1])
			}
		}
		if n.name == "polygon" {
			p.Close()
		}
		return p, nil, true
	}
	return p, nil, false
}

func optionalLength(n *node, name string, ref, fontSize float64) (float64, bool) {
	v, ok := n.attrs[name]
	if !ok {
		return 0, false
	}
	l, err := ParseLength(v)
	if err != nil || l.Value < 0 {
		return 0, false
	}
	return l.Points(ref, fontSize), true
}

func roundedRect(p *contentstream.Path, x, y, w, h, rx, ry float64) {
	if rx == 0 || ry == 0 {
		p.MoveTo(x, y)
		p.LineTo(x+w, y)
		p.LineTo(x+w, y+h)
		p.LineTo(x, y+h)
		p.Close()
		return
	}
	kx, ky := rx*kappa, ry*kappa
	p.MoveTo(x+rx, y)
	p.LineTo(x+w-rx, y)
	p.CurveTo(x+w-rx+kx, y, x+w, y+ry-ky, x+w, y+ry)
	p.LineTo(x+w, y+h-ry)
	p.CurveTo(x+w, y+h-ry+ky, x+w-rx+kx, y+h, x+w-rx, y+h)
	p.LineTo(x+rx, y+h)
	p.CurveTo(x+rx-kx, y+h, x, y+h-ry+ky, x, y+h-ry)
	p.LineTo(x, y+ry)
	p.CurveTo(x, y+ry-ky, x+rx-kx, y, x+rx, y)
	p.Close()
}

func ellipse(p *contentstream.Path, cx, cy, rx, ry float64) {
	kx, ky := rx*kappa, ry*kappa
	p.MoveTo(cx+rx, cy)
	p.CurveTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	p.CurveTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	p.CurveTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	p.CurveTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	p.Close()
}
