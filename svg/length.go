package svg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// One user unit is one point. Absolute units convert at 72 per inch; px is
// taken as a user unit, which is how the note pipeline sizes its scenes.
var unitScale = map[string]float64{
	"":   1,
	"px": 1,
	"pt": 1,
	"pc": 12,
	"in": 72,
	"cm": 72 / 2.54,
	"mm": 72 / 25.4,
	"q":  72 / 101.6,
}

// Length is a parsed SVG length.
type Length struct {
	Value float64
	Unit  string // lower-case unit suffix, "%" for percentages
}

// ParseLength parses a number with an optional unit suffix.
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Length{}, fmt.Errorf("empty length")
	}
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '%' {
			end--
			continue
		}
		break
	}
	num, unit := s[:end], strings.ToLower(s[end:])
	// A trailing exponent marker belongs to the number, not the unit.
	if strings.HasPrefix(unit, "e") && unit != "em" && unit != "ex" {
		return Length{}, fmt.Errorf("invalid length %q", s)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Length{}, fmt.Errorf("invalid length %q", s)
	}
	switch unit {
	case "%", "em", "ex":
	default:
		if _, ok := unitScale[unit]; !ok {
			return Length{}, fmt.Errorf("unknown unit %q in %q", unit, s)
		}
	}
	return Length{Value: v, Unit: unit}, nil
}

// Points converts l to points. ref resolves percentages and fontSize
// resolves em and ex.
func (l Length) Points(ref, fontSize float64) float64 {
	switch l.Unit {
	case "%":
		return l.Value / 100 * ref
	case "em":
		return l.Value * fontSize
	case "ex":
		return l.Value * fontSize / 2
	}
	return l.Value * unitScale[l.Unit]
}

// Absolute reports whether l converts without a reference size.
func (l Length) Absolute() bool {
	switch l.Unit {
	case "%", "em", "ex":
		return false
	}
	return true
}

// parseNumbers splits a comma/whitespace separated number list.
func parseNumbers(s string) ([]float64, error) {
	var out []float64
	sc := numberScanner{s: s}
	for {
		sc.skipSeparators()
		if sc.done() {
			return out, nil
		}
		v, ok := sc.number()
		if !ok {
			return out, fmt.Errorf("invalid number list %q", s)
		}
		out = append(out, v)
	}
}

// numberScanner reads SVG numbers, which may run together ("1-2.5.5").
type numberScanner struct {
	s   string
	pos int
}

func (sc *numberScanner) done() bool { return sc.pos >= len(sc.s) }

func (sc *numberScanner) peek() byte {
	if sc.done() {
		return 0
	}
	return sc.s[sc.pos]
}

func (sc *numberScanner) skipSpace() {
	for !sc.done() && isSpace(sc.s[sc.pos]) {
		sc.pos++
	}
}

func (sc *numberScanner) skipSeparators() {
	sc.skipSpace()
	if sc.peek() == ',' {
		sc.pos++
		sc.skipSpace()
	}
}

func (sc *numberScanner) number() (float64, bool) {
	start := sc.pos
	i := sc.pos
	if i < len(sc.s) && (sc.s[i] == '+' || sc.s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(sc.s) && isDigit(sc.s[i]) {
		i++
		digits++
	}
	if i < len(sc.s) && sc.s[i] == '.' {
		i++
		for i < len(sc.s) && isDigit(sc.s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if i < len(sc.s) && (sc.s[i] == 'e' || sc.s[i] == 'E') {
		j := i + 1
		if j < len(sc.s) && (sc.s[j] == '+' || sc.s[j] == '-') {
			j++
		}
		if j < len(sc.s) && isDigit(sc.s[j]) {
			for j < len(sc.s) && isDigit(sc.s[j]) {
				j++
			}
			i = j
		}
	}
	v, err := strconv.ParseFloat(sc.s[start:i], 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	sc.pos = i
	return v, true
}

// flag reads a single arc flag digit, which needs no separator.
func (sc *numberScanner) flag() (bool, bool) {
	switch sc.peek() {
	case '0':
		sc.pos++
		return false, true
	case '1':
		sc.pos++
		return true, true
	}
	return false, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
