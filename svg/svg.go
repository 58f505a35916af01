// Package svg validates vector scenes and flattens them into a display
// list the page painter can replay.
//
// The supported subset covers what note scenes use: basic shapes, paths,
// groups with transforms, inline raster images and plain text. Paint
// servers, clipping, masks, filters and CSS style sheets are not
// interpreted; elements that need them are skipped or fall back to their
// plain colour.
package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/Schewwpid/note2PDF/contentstream"
	"github.com/Schewwpid/note2PDF/coords"
)

// ErrInvalid is returned when data is not a usable SVG document.
var ErrInvalid = errors.New("svg: invalid document")

// maxDepth bounds element nesting.
const maxDepth = 256

// Rect is an axis-aligned rectangle in user units.
type Rect struct {
	X, Y, W, H float64
}

// Drawing is a parsed scene.
type Drawing struct {
	// Width and Height are the root size in points; zero when absent.
	Width, Height float64

	// ViewBox is the root viewBox, or nil when absent.
	ViewBox *Rect

	// Items are in paint order.
	Items []Item

	// Lang is the root xml:lang (or lang) attribute.
	Lang string

	// Warnings lists content that was skipped.
	Warnings []string
}

// Bounds returns the user-space rectangle the root maps onto its viewport:
// the viewBox if present, otherwise the root size.
func (d *Drawing) Bounds() Rect {
	if d.ViewBox != nil {
		return *d.ViewBox
	}
	return Rect{W: d.Width, H: d.Height}
}

// Item is a display list entry: *Shape, *Image or *Text.
type Item interface {
	item()
}

// Shape is a filled and/or stroked path.
type Shape struct {
	Path *contentstream.Path // user space of the element
	Rect *Rect               // set when Path is an axis-aligned rectangle
	CTM  coords.Matrix       // element space to root user space

	Fill        *Color
	FillOpacity float64
	FillRule    contentstream.FillRule

	Stroke        *Color
	StrokeOpacity float64
	StrokeWidth   float64
	LineCap       contentstream.LineCap
	LineJoin      contentstream.LineJoin
	MiterLimit    float64
	Dash          []float64
	DashOffset    float64
}

// Image is a raster image placed into Dest, clipped to Clip when set.
type Image struct {
	Src     image.Image
	Format  string
	Dest    Rect
	Clip    *Rect
	CTM     coords.Matrix
	Opacity float64
}

// Anchor is the text-anchor property.
type Anchor int

const (
	AnchorStart Anchor = iota
	AnchorMiddle
	AnchorEnd
)

// Text is a run of characters. A run without an explicit position continues
// at the pen position left by the previous run of the same text element.
type Text struct {
	Content     string
	X, Y        float64
	AutoX       bool
	AutoY       bool
	DX, DY      float64
	NewChunk    bool // first run of a text element
	FontSize    float64
	Anchor      Anchor
	Fill        *Color
	FillOpacity float64
	CTM         coords.Matrix
}

func (*Shape) item() {}
func (*Image) item() {}
func (*Text) item()  {}

// node is a parsed element. Character data is kept as children with an
// empty name so that text content stays in document order.
type node struct {
	name     string
	attrs    map[string]string
	children []*node
	text     string
}

// Parse validates data and builds its display list. It fails with ErrInvalid
// when data is not well-formed XML, the root element is not svg, or the root
// geometry is unusable.
func Parse(data []byte) (*Drawing, error) {
	root, err := parseTree(data)
	if err != nil {
		return nil, err
	}
	d := &Drawing{}
	if err := d.readRoot(root); err != nil {
		return nil, err
	}
	w := &walker{d: d}
	vp := viewport{w: d.Bounds().W, h: d.Bounds().H}
	st := defaultStyle()
	w.applyStyle(&st, root, vp)
	if !st.display {
		return d, nil
	}
	w.children(root, st, coords.Identity(), vp, 0)
	return d, nil
}

// Size returns the root width and height in points, falling back to the
// viewBox size for missing dimensions.
func Size(data []byte) (float64, float64, error) {
	root, err := parseTree(data)
	if err != nil {
		return 0, 0, err
	}
	d := &Drawing{}
	if err := d.readRoot(root); err != nil {
		return 0, 0, err
	}
	w, h := d.Width, d.Height
	if d.ViewBox != nil {
		if w == 0 {
			w = d.ViewBox.W
		}
		if h == 0 {
			h = d.ViewBox.H
		}
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: root has no usable size", ErrInvalid)
	}
	return w, h, nil
}

func parseTree(data []byte) (*node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalid)
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity

	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", ErrInvalid)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, &node{text: string(t)})
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrInvalid)
	}
	if root.name != "svg" {
		return nil, fmt.Errorf("%w: root element is <%s>", ErrInvalid, root.name)
	}
	return root, nil
}

func (d *Drawing) readRoot(root *node) error {
	d.Lang = strings.TrimSpace(root.attrs["lang"])
	if v, ok := root.attrs["viewBox"]; ok {
		vb, err := parseViewBox(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		d.ViewBox = &vb
	}
	for _, dim := range []struct {
		name string
		out  *float64
	}{{"width", &d.Width}, {"height", &d.Height}} {
		v, ok := root.attrs[dim.name]
		if !ok || v == "auto" {
			continue
		}
		l, err := ParseLength(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, dim.name, err)
		}
		if l.Value < 0 {
			return fmt.Errorf("%w: negative %s", ErrInvalid, dim.name)
		}
		// Relative root sizes have no reference; they fall back to the viewBox.
		if l.Absolute() {
			*dim.out = l.Points(0, DefaultFontSize)
		}
	}
	return nil
}

func parseViewBox(v string) (Rect, error) {
	n, err := parseNumbers(v)
	if err != nil || len(n) != 4 {
		return Rect{}, fmt.Errorf("viewBox %q needs four numbers", v)
	}
	if n[2] < 0 || n[3] < 0 {
		return Rect{}, fmt.Errorf("viewBox %q has a negative size", v)
	}
	return Rect{X: n[0], Y: n[1], W: n[2], H: n[3]}, nil
}

// viewport is the reference box for percentage lengths.
type viewport struct{ w, h float64 }

func (v viewport) diagonal() float64 { return math.Sqrt((v.w*v.w + v.h*v.h) / 2) }

type walker struct {
	d *Drawing
}

func (w *walker) warn(format string, args ...any) {
	w.d.Warnings = append(w.d.Warnings, fmt.Sprintf(format, args...))
}

func (w *walker) applyStyle(st *style, n *node, vp viewport) {
	decls := declarations(n)
	for _, kv := range decls {
		if kv[0] == "font-size" {
			st.apply(kv[0], kv[1], vp)
		}
	}
	for _, kv := range decls {
		if kv[0] != "font-size" {
			st.apply(kv[0], kv[1], vp)
		}
	}
}

func (w *walker) children(n *node, st style, ctm coords.Matrix, vp viewport, depth int) {
	for _, c := range n.children {
		if c.name != "" {
			w.element(c, st, ctm, vp, depth+1)
		}
	}
}

func (w *walker) element(n *node, parent style, ctm coords.Matrix, vp viewport, depth int) {
	if depth > maxDepth {
		w.warn("element nesting deeper than %d skipped", maxDepth)
		return
	}
	switch n.name {
	case "defs", "title", "desc", "metadata", "style", "script", "symbol",
		"clipPath", "mask", "marker", "pattern", "filter",
		"linearGradient", "radialGradient":
		return
	}

	st := parent.child()
	w.applyStyle(&st, n, vp)
	if !st.display {
		return
	}
	// Group opacity is folded into each descendant's paint alpha.
	st.opacity *= parent.opacity
	if v, ok := n.attrs["transform"]; ok {
		m, err := ParseTransform(v)
		if err != nil {
			w.warn("<%s>: %v", n.name, err)
		} else {
			ctm = m.Multiply(ctm)
		}
	}

	switch n.name {
	case "g", "a":
		w.children(n, st, ctm, vp, depth)
	case "switch":
		for _, c := range n.children {
			if c.name != "" {
				w.element(c, st, ctm, vp, depth+1)
				break
			}
		}
	case "svg":
		w.nestedSVG(n, st, ctm, vp, depth)
	case "path":
		p, err := ParsePath(n.attrs["d"])
		if err != nil {
			w.warn("<path>: %v", err)
		}
		w.shape(p, nil, st, ctm, true)
	case "rect", "circle", "ellipse", "line", "polyline", "polygon":
		p, rect, fillable := basicShape(n, vp, st.fontSize)
		w.shape(p, rect, st, ctm, fillable)
	case "image":
		w.image(n, st, ctm, vp)
	case "text":
		w.text(n, st, ctm, vp)
	default:
		w.warn("unsupported element <%s> skipped", n.name)
	}
}

func (w *walker) nestedSVG(n *node, st style, ctm coords.Matrix, vp viewport, depth int) {
	x := attrLength(n, "x", vp.w, st.fontSize, 0)
	y := attrLength(n, "y", vp.h, st.fontSize, 0)
	width := attrLength(n, "width", vp.w, st.fontSize, vp.w)
	height := attrLength(n, "height", vp.h, st.fontSize, vp.h)
	if width <= 0 || height <= 0 {
		return
	}
	inner := viewport{w: width, h: height}
	m := coords.Translate(x, y)
	if v, ok := n.attrs["viewBox"]; ok {
		vb, err := parseViewBox(v)
		if err != nil {
			w.warn("<svg>: %v", err)
		} else {
			if vb.W == 0 || vb.H == 0 {
				return
			}
			m = viewBoxTransform(vb, Rect{X: x, Y: y, W: width, H: height}, parseAspect(n.attrs["preserveAspectRatio"]))
			inner = viewport{w: vb.W, h: vb.H}
		}
	}
	w.children(n, st, m.Multiply(ctm), inner, depth)
}

func (w *walker) shape(p *contentstream.Path, rect *Rect, st style, ctm coords.Matrix, fillable bool) {
	if st.hidden || p.Empty() {
		return
	}
	s := &Shape{
		Path:          p,
		Rect:          rect,
		CTM:           ctm,
		FillRule:      st.fillRule,
		FillOpacity:   st.fillOpacity * st.opacity,
		StrokeOpacity: st.strokeOpacity * st.opacity,
		StrokeWidth:   st.strokeWidth,
		LineCap:       st.lineCap,
		LineJoin:      st.lineJoin,
		MiterLimit:    st.miterLimit,
		Dash:          st.dash,
		DashOffset:    st.dashOffset,
	}
	if fillable {
		s.Fill = resolvePaint(st.fill, st.color)
	}
	if st.strokeWidth > 0 {
		s.Stroke = resolvePaint(st.stroke, st.color)
	}
	if s.Fill == nil && s.Stroke == nil {
		return
	}
	w.d.Items = append(w.d.Items, s)
}

func resolvePaint(p paint, current Color) *Color {
	switch {
	case p.none:
		return nil
	case p.current:
		c := current
		return &c
	}
	c := p.color
	return &c
}

// attrLength resolves a length attribute, returning def when it is absent
// or invalid.
func attrLength(n *node, name string, ref, fontSize, def float64) float64 {
	v, ok := n.attrs[name]
	if !ok {
		return def
	}
	l, err := ParseLength(v)
	if err != nil {
		return def
	}
	return l.Points(ref, fontSize)
}

// aspect is a parsed preserveAspectRatio value.
type aspect struct {
	none   bool
	alignX float64 // 0 min, 0.5 mid, 1 max
	alignY float64
	slice  bool
}

func parseAspect(v string) aspect {
	a := aspect{alignX: 0.5, alignY: 0.5}
	fields := strings.Fields(v)
	if len(fields) > 0 && fields[0] == "defer" {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return a
	}
	if fields[0] == "none" {
		return aspect{none: true}
	}
	if len(fields[0]) == 8 {
		a.alignX = alignValue(fields[0][1:4])
		a.alignY = alignValue(fields[0][5:8])
	}
	if len(fields) > 1 && fields[1] == "slice" {
		a.slice = true
	}
	return a
}

func alignValue(s string) float64 {
	switch strings.ToLower(s) {
	case "min":
		return 0
	case "max":
		return 1
	}
	return 0.5
}

// viewBoxTransform maps vb onto dest honouring the aspect rule.
func viewBoxTransform(vb, dest Rect, a aspect) coords.Matrix {
	sx, sy := dest.W/vb.W, dest.H/vb.H
	if !a.none {
		s := math.Min(sx, sy)
		if a.slice {
			s = math.Max(sx, sy)
		}
		sx, sy = s, s
	}
	tx := dest.X - vb.X*sx
	ty := dest.Y - vb.Y*sy
	if !a.none {
		tx += (dest.W - vb.W*sx) * a.alignX
		ty += (dest.H - vb.H*sy) * a.alignY
	}
	return coords.Matrix{sx, 0, 0, sy, tx, ty}
}
