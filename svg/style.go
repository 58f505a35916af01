package svg

import (
	"math"
	"strconv"
	"strings"

	"github.com/Schewwpid/note2PDF/contentstream"
)

// DefaultFontSize is the initial font-size in points.
const DefaultFontSize = 16

// style is the computed presentation state of an element. Inherited
// properties flow down by copying; display and opacity are applied per
// element.
type style struct {
	fill          paint
	fillOpacity   float64
	fillRule      contentstream.FillRule
	stroke        paint
	strokeOpacity float64
	strokeWidth   float64
	lineCap       contentstream.LineCap
	lineJoin      contentstream.LineJoin
	miterLimit    float64
	dash          []float64
	dashOffset    float64
	color         Color
	fontSize      float64
	anchor        Anchor
	hidden        bool // visibility: hidden/collapse

	// Per element, reset for each child.
	display bool
	opacity float64
}

func defaultStyle() style {
	return style{
		fill:          paint{color: Black},
		fillOpacity:   1,
		stroke:        paint{none: true},
		strokeOpacity: 1,
		strokeWidth:   1,
		miterLimit:    4,
		fontSize:      DefaultFontSize,
		display:       true,
		opacity:       1,
	}
}

// child returns the style a child element starts from.
func (s style) child() style {
	c := s
	c.display = true
	c.opacity = 1
	return c
}

// declarations returns the presentation attributes of n followed by the
// entries of its style attribute, so that later entries win.
func declarations(n *node) [][2]string {
	var out [][2]string
	for _, name := range presentationAttrs {
		if v, ok := n.attrs[name]; ok {
			out = append(out, [2]string{name, v})
		}
	}
	if st, ok := n.attrs["style"]; ok {
		for _, decl := range strings.Split(st, ";") {
			name, value, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
			out = append(out, [2]string{strings.ToLower(strings.TrimSpace(name)), value})
		}
	}
	return out
}

var presentationAttrs = []string{
	"color", "fill", "fill-opacity", "fill-rule", "stroke", "stroke-opacity",
	"stroke-width", "stroke-linecap", "stroke-linejoin", "stroke-miterlimit",
	"stroke-dasharray", "stroke-dashoffset", "opacity", "visibility", "display",
	"font-size", "text-anchor",
}

// apply sets one property. Invalid values are ignored, as in CSS.
func (s *style) apply(name, value string, vp viewport) {
	if value == "inherit" || value == "" {
		return
	}
	switch name {
	case "color":
		if c, err := ParseColor(value); err == nil {
			s.color = c
		}
	case "fill":
		if p, err := parsePaint(value); err == nil {
			s.fill = p
		}
	case "stroke":
		if p, err := parsePaint(value); err == nil {
			s.stroke = p
		}
	case "fill-opacity":
		if v, ok := parseOpacity(value); ok {
			s.fillOpacity = v
		}
	case "stroke-opacity":
		if v, ok := parseOpacity(value); ok {
			s.strokeOpacity = v
		}
	case "opacity":
		if v, ok := parseOpacity(value); ok {
			s.opacity = v
		}
	case "fill-rule":
		switch value {
		case "evenodd":
			s.fillRule = contentstream.FillEvenOdd
		case "nonzero":
			s.fillRule = contentstream.FillNonZero
		}
	case "stroke-width":
		if l, err := ParseLength(value); err == nil && l.Value >= 0 {
			s.strokeWidth = l.Points(vp.diagonal(), s.fontSize)
		}
	case "stroke-linecap":
		switch value {
		case "butt":
			s.lineCap = contentstream.LineCapButt
		case "round":
			s.lineCap = contentstream.LineCapRound
		case "square":
			s.lineCap = contentstream.LineCapSquare
		}
	case "stroke-linejoin":
		switch value {
		case "miter", "miter-clip", "arcs":
			s.lineJoin = contentstream.LineJoinMiter
		case "round":
			s.lineJoin = contentstream.LineJoinRound
		case "bevel":
			s.lineJoin = contentstream.LineJoinBevel
		}
	case "stroke-miterlimit":
		if v, err := strconv.ParseFloat(value, 64); err == nil && v >= 1 {
			s.miterLimit = v
		}
	case "stroke-dasharray":
		s.dash = parseDash(value, vp, s.fontSize)
	case "stroke-dashoffset":
		if l, err := ParseLength(value); err == nil {
			s.dashOffset = l.Points(vp.diagonal(), s.fontSize)
		}
	case "visibility":
		switch value {
		case "hidden", "collapse":
			s.hidden = true
		case "visible":
			s.hidden = false
		}
	case "display":
		s.display = value != "none"
	case "font-size":
		if size, ok := parseFontSize(value, s.fontSize); ok {
			s.fontSize = size
		}
	case "text-anchor":
		switch value {
		case "start":
			s.anchor = AnchorStart
		case "middle":
			s.anchor = AnchorMiddle
		case "end":
			s.anchor = AnchorEnd
		}
	}
}

func parseOpacity(v string) (float64, bool) {
	pct := strings.HasSuffix(v, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	if pct {
		f /= 100
	}
	return clamp01(f), true
}

// parseDash returns nil for "none", for invalid lists, and for lists that
// sum to zero, all of which render solid.
func parseDash(v string, vp viewport, fontSize float64) []float64 {
	if v == "none" {
		return nil
	}
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	out := make([]float64, 0, len(fields))
	sum := 0.0
	for _, f := range fields {
		l, err := ParseLength(f)
		if err != nil || l.Value < 0 {
			return nil
		}
		d := l.Points(vp.diagonal(), fontSize)
		out = append(out, d)
		sum += d
	}
	if sum == 0 {
		return nil
	}
	// An odd count repeats to make an even one.
	if len(out)%2 == 1 {
		out = append(out, out...)
	}
	return out
}

var fontSizeKeywords = map[string]float64{
	"xx-small": 9,
	"x-small":  10,
	"small":    13,
	"medium":   16,
	"large":    18,
	"x-large":  24,
	"xx-large": 32,
}

func parseFontSize(v string, parent float64) (float64, bool) {
	if size, ok := fontSizeKeywords[v]; ok {
		return size, true
	}
	switch v {
	case "larger":
		return parent * 1.2, true
	case "smaller":
		return parent / 1.2, true
	}
	l, err := ParseLength(v)
	if err != nil || l.Value < 0 {
		return 0, false
	}
	// Percent and em sizes are relative to the parent font size.
	return l.Points(parent, parent), true
}
