package contentstream

import "github.com/Schewwpid/note2PDF/coords"

// LineCap represents the line cap style (J operator).
type LineCap int

const (
	LineCapButt LineCap = iota
	LineCapRound
	LineCapSquare
)

// LineJoin represents the line join style (j operator).
type LineJoin int

const (
	LineJoinMiter LineJoin = iota
	LineJoinRound
	LineJoinBevel
)

// FillRule selects the nonzero (f) or even-odd (f*) fill operator.
type FillRule int

const (
	FillNonZero FillRule = iota
	FillEvenOdd
)

// Path describes a graphics path made of subpaths.
type Path struct {
	Subpaths []Subpath
}

// Subpath describes a portion of a path.
type Subpath struct {
	Points []PathPoint
	Closed bool
}

// PathPoint identifies a path segment and its coordinates.
type PathPoint struct {
	X, Y                 float64
	Type                 PathPointType
	Control1X, Control1Y float64
	Control2X, Control2Y float64
}

// PathPointType enumerates path segment types.
type PathPointType int

const (
	PathMoveTo PathPointType = iota
	PathLineTo
	PathCurveTo
	PathClose
)

// MoveTo starts a new subpath at (x, y).
func (p *Path) MoveTo(x, y float64) {
	p.Subpaths = append(p.Subpaths, Subpath{Points: []PathPoint{{X: x, Y: y, Type: PathMoveTo}}})
}

// LineTo appends a straight segment. A missing current point acts as MoveTo.
func (p *Path) LineTo(x, y float64) {
	sp := p.current()
	if sp == nil {
		p.MoveTo(x, y)
		return
	}
	sp.Points = append(sp.Points, PathPoint{X: x, Y: y, Type: PathLineTo})
}

// CurveTo appends a cubic Bézier segment.
func (p *Path) CurveTo(c1x, c1y, c2x, c2y, x, y float64) {
	sp := p.current()
	if sp == nil {
		p.MoveTo(c1x, c1y)
		sp = p.current()
	}
	sp.Points = append(sp.Points, PathPoint{
		X: x, Y: y, Type: PathCurveTo,
		Control1X: c1x, Control1Y: c1y,
		Control2X: c2x, Control2Y: c2y,
	})
}

// Close closes the current subpath.
func (p *Path) Close() {
	if sp := p.current(); sp != nil {
		sp.Closed = true
	}
}

// Empty reports whether the path has no drawable segment.
func (p *Path) Empty() bool {
	if p == nil {
		return true
	}
	for _, sp := range p.Subpaths {
		if len(sp.Points) > 1 {
			return false
		}
	}
	return true
}

// Transform returns a copy of p with every coordinate mapped through m.
func (p *Path) Transform(m coords.Matrix) *Path {
	out := &Path{Subpaths: make([]Subpath, len(p.Subpaths))}
	for i, sp := range p.Subpaths {
		pts := make([]PathPoint, len(sp.Points))
		for j, pt := range sp.Points {
			a := m.Transform(coords.Point{X: pt.X, Y: pt.Y})
			c1 := m.Transform(coords.Point{X: pt.Control1X, Y: pt.Control1Y})
			c2 := m.Transform(coords.Point{X: pt.Control2X, Y: pt.Control2Y})
			pts[j] = PathPoint{
				X: a.X, Y: a.Y, Type: pt.Type,
				Control1X: c1.X, Control1Y: c1.Y,
				Control2X: c2.X, Control2Y: c2.Y,
			}
		}
		out.Subpaths[i] = Subpath{Points: pts, Closed: sp.Closed}
	}
	return out
}

func (p *Path) current() *Subpath {
	if len(p.Subpaths) == 0 {
		return nil
	}
	return &p.Subpaths[len(p.Subpaths)-1]
}
