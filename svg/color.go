package svg

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color is an sRGB colour with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Black is the initial fill colour.
var Black = Color{}

// paint is a parsed fill or stroke value.
type paint struct {
	none    bool
	current bool // currentColor
	color   Color
}

func parsePaint(s string) (paint, error) {
	s = strings.TrimSpace(s)
	// A url() reference may carry a fallback colour after it.
	if strings.HasPrefix(s, "url(") {
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return paint{}, fmt.Errorf("invalid paint %q", s)
		}
		fallback := strings.TrimSpace(s[end+1:])
		if fallback == "" {
			return paint{none: true}, nil
		}
		return parsePaint(fallback)
	}
	switch strings.ToLower(s) {
	case "none", "transparent":
		return paint{none: true}, nil
	case "currentcolor":
		return paint{current: true}, nil
	}
	c, err := ParseColor(s)
	if err != nil {
		return paint{}, err
	}
	return paint{color: c}, nil
}

// ParseColor parses #rgb, #rrggbb, rgb()/rgba() and the SVG named colours.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(strings.ToLower(s), "rgb"):
		return parseRGBFunc(s)
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}, nil
	}
	return Color{}, fmt.Errorf("unknown colour %q", s)
}

func parseHex(h string) (Color, error) {
	switch len(h) {
	case 3, 4:
		var v [3]float64
		for i := 0; i < 3; i++ {
			n, err := strconv.ParseUint(h[i:i+1], 16, 8)
			if err != nil {
				return Color{}, fmt.Errorf("invalid colour #%s", h)
			}
			v[i] = float64(n*17) / 255
		}
		return Color{v[0], v[1], v[2]}, nil
	case 6, 8:
		var v [3]float64
		for i := 0; i < 3; i++ {
			n, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
			if err != nil {
				return Color{}, fmt.Errorf("invalid colour #%s", h)
			}
			v[i] = float64(n) / 255
		}
		return Color{v[0], v[1], v[2]}, nil
	}
	return Color{}, fmt.Errorf("invalid colour #%s", h)
}

func parseRGBFunc(s string) (Color, error) {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	parts := strings.FieldsFunc(s[open+1:end], func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '/'
	})
	if len(parts) < 3 {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	var v [3]float64
	for i := 0; i < 3; i++ {
		p := parts[i]
		pct := strings.HasSuffix(p, "%")
		n, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return Color{}, fmt.Errorf("invalid colour %q", s)
		}
		if pct {
			n = n / 100
		} else {
			n = n / 255
		}
		v[i] = clamp01(n)
	}
	return Color{v[0], v[1], v[2]}, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
