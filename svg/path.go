package svg

import (
	"fmt"
	"math"

	"github.com/Schewwpid/note2PDF/contentstream"
)

// ParsePath converts SVG path data into a path of lines and cubic curves.
// On a syntax error the segments before the error are kept and the error is
// returned alongside them, which is how SVG renderers treat bad path data.
func ParsePath(d string) (*contentstream.Path, error) {
	p := &pathParser{sc: numberScanner{s: d}, path: &contentstream.Path{}}
	err := p.run()
	return p.path, err
}

type pathParser struct {
	sc   numberScanner
	path *contentstream.Path

	cx, cy     float64 // current point
	sx, sy     float64 // start of the current subpath
	lastCtrlX  float64 // reflected control point source
	lastCtrlY  float64
	lastCmd    byte
	hasCurrent bool
}

func (p *pathParser) run() error {
	var cmd byte
	for {
		p.sc.skipSpace()
		if p.sc.done() {
			return nil
		}
		c := p.sc.peek()
		switch {
		case isCommand(c):
			cmd = c
			p.sc.pos++
		case cmd == 0:
			return fmt.Errorf("path data must start with a command at offset %d", p.sc.pos)
		case cmd == 'Z' || cmd == 'z':
			return fmt.Errorf("unexpected number after closepath at offset %d", p.sc.pos)
		}
		if !p.hasCurrent && cmd != 'M' && cmd != 'm' {
			return fmt.Errorf("path data must start with moveto")
		}
		if err := p.segment(cmd); err != nil {
			return err
		}
		// Coordinates following a moveto are implicit linetos.
		switch cmd {
		case 'M':
			cmd = 'L'
		case 'm':
			cmd = 'l'
		}
	}
}

func isCommand(c byte) bool {
	switch c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'C', 'c', 'S', 's', 'Q', 'q', 'T', 't', 'A', 'a', 'Z', 'z':
		return true
	}
	return false
}

func (p *pathParser) nums(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		p.sc.skipSeparators()
		v, ok := p.sc.number()
		if !ok {
			return nil, fmt.Errorf("expected number at offset %d", p.sc.pos)
		}
		out[i] = v
	}
	return out, nil
}

func (p *pathParser) segment(cmd byte) error {
	rel := cmd >= 'a'
	ox, oy := 0.0, 0.0
	if rel {
		ox, oy = p.cx, p.cy
	}
	upper := cmd &^ 0x20
	if p.lastCmd == 'Z' && upper != 'M' && upper != 'Z' {
		p.path.MoveTo(p.sx, p.sy)
	}

	switch upper {
	case 'Z':
		p.path.Close()
		p.cx, p.cy = p.sx, p.sy
		p.lastCmd = 'Z'
		return nil

	case 'M':
		a, err := p.nums(2)
		if err != nil {
			return err
		}
		p.cx, p.cy = ox+a[0], oy+a[1]
		p.sx, p.sy = p.cx, p.cy
		p.path.MoveTo(p.cx, p.cy)
		p.hasCurrent = true

	case 'L':
		a, err := p.nums(2)
		if err != nil {
			return err
		}
		p.lineTo(ox+a[0], oy+a[1])

	case 'H':
		a, err := p.nums(1)
		if err != nil {
			return err
		}
		p.lineTo(ox+a[0], p.cy)

	case 'V':
		a, err := p.nums(1)
		if err != nil {
			return err
		}
		p.lineTo(p.cx, oy+a[0])

	case 'C':
		a, err := p.nums(6)
		if err != nil {
			return err
		}
		p.curveTo(ox+a[0], oy+a[1], ox+a[2], oy+a[3], ox+a[4], oy+a[5])

	case 'S':
		a, err := p.nums(4)
		if err != nil {
			return err
		}
		c1x, c1y := p.cx, p.cy
		if p.lastCmd == 'C' || p.lastCmd == 'S' {
			c1x, c1y = 2*p.cx-p.lastCtrlX, 2*p.cy-p.lastCtrlY
		}
		p.curveTo(c1x, c1y, ox+a[0], oy+a[1], ox+a[2], oy+a[3])

	case 'Q':
		a, err := p.nums(4)
		if err != nil {
			return err
		}
		p.quadTo(ox+a[0], oy+a[1], ox+a[2], oy+a[3])

	case 'T':
		a, err := p.nums(2)
		if err != nil {
			return err
		}
		qx, qy := p.cx, p.cy
		if p.lastCmd == 'Q' || p.lastCmd == 'T' {
			qx, qy = 2*p.cx-p.lastCtrlX, 2*p.cy-p.lastCtrlY
		}
		p.quadTo(qx, qy, ox+a[0], oy+a[1])

	case 'A':
		a, err := p.nums(3)
		if err != nil {
			return err
		}
		p.sc.skipSeparators()
		large, ok := p.sc.flag()
		if !ok {
			return fmt.Errorf("expected arc flag at offset %d", p.sc.pos)
		}
		p.sc.skipSeparators()
		sweep, ok := p.sc.flag()
		if !ok {
			return fmt.Errorf("expected arc flag at offset %d", p.sc.pos)
		}
		end, err := p.nums(2)
		if err != nil {
			return err
		}
		p.arcTo(a[0], a[1], a[2], large, sweep, ox+end[0], oy+end[1])
	}
	p.lastCmd = upper
	return nil
}

func (p *pathParser) lineTo(x, y float64) {
	p.path.LineTo(x, y)
	p.cx, p.cy = x, y
}

func (p *pathParser) curveTo(c1x, c1y, c2x, c2y, x, y float64) {
	p.path.CurveTo(c1x, c1y, c2x, c2y, x, y)
	p.lastCtrlX, p.lastCtrlY = c2x, c2y
	p.cx, p.cy = x, y
}

// quadTo raises a quadratic segment to a cubic one.
func (p *pathParser) quadTo(qx, qy, x, y float64) {
	c1x, c1y := p.cx+2.0/3.0*(qx-p.cx), p.cy+2.0/3.0*(qy-p.cy)
	c2x, c2y := x+2.0/3.0*(qx-x), y+2.0/3.0*(qy-y)
	p.path.CurveTo(c1x, c1y, c2x, c2y, x, y)
	p.lastCtrlX, p.lastCtrlY = qx, qy
	p.cx, p.cy = x, y
}

// arcTo approximates an elliptical arc with cubic segments of at most 90
// degrees each, following the endpoint-to-centre conversion of SVG 1.1 F.6.
func (p *pathParser) arcTo(rx, ry, phiDeg float64, large, sweep bool, x, y float64) {
	x1, y1 := p.cx, p.cy
	if x1 == x && y1 == y {
		return
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		p.lineTo(x, y)
		return
	}
	phi := phiDeg * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)

	dx, dy := (x1-x)/2, (y1-y)/2
	x1p := cosPhi*dx + sinPhi*dy
	y1p := -sinPhi*dx + cosPhi*dy

	// Scale up radii that cannot span the endpoints.
	if lambda := x1p*x1p/(rx*rx) + y1p*y1p/(ry*ry); lambda > 1 {
		s := math.Sqrt(lambda)
		rx, ry = rx*s, ry*s
	}

	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	coef := 0.0
	if den != 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx

	cx := cosPhi*cxp - sinPhi*cyp + (x1+x)/2
	cy := sinPhi*cxp + cosPhi*cyp + (y1+y)/2

	theta1 := vectorAngle(1, 0, (x1p-cxp)/rx, (y1p-cyp)/ry)
	delta := vectorAngle((x1p-cxp)/rx, (y1p-cyp)/ry, (-x1p-cxp)/rx, (-y1p-cyp)/ry)
	if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	} else if sweep && delta < 0 {
		delta += 2 * math.Pi
	}

	segs := int(math.Ceil(math.Abs(delta) / (math.Pi / 2)))
	if segs == 0 {
		segs = 1
	}
	step := delta / float64(segs)
	k := 4.0 / 3.0 * math.Tan(step/4)

	point := func(t float64) (float64, float64) {
		ex, ey := rx*math.Cos(t), ry*math.Sin(t)
		return cosPhi*ex - sinPhi*ey + cx, sinPhi*ex + cosPhi*ey + cy
	}
	deriv := func(t float64) (float64, float64) {
		ex, ey := -rx*math.Sin(t), ry*math.Cos(t)
		return cosPhi*ex - sinPhi*ey, sinPhi*ex + cosPhi*ey
	}

	t := theta1
	for i := 0; i < segs; i++ {
		t2 := t + step
		px, py := point(t)
		qx, qy := point(t2)
		d1x, d1y := deriv(t)
		d2x, d2y := deriv(t2)
		if i == segs-1 {
			qx, qy = x, y
		}
		p.path.CurveTo(px+k*d1x, py+k*d1y, qx-k*d2x, qy-k*d2y, qx, qy)
		t = t2
	}
	p.cx, p.cy = x, y
}

func vectorAngle(ux, uy, vx, vy float64) float64 {
	return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
}
