// Package fonts prepares TrueType fonts for embedding, either as simple
// WinAnsi-encoded PDF fonts or as Type0 fonts addressed by glyph ID, and
// measures text set in them.
package fonts

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"unicode"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/charmap"

	"github.com/Schewwpid/note2PDF/ir/semantic"
)

const (
	firstChar = 32
	lastChar  = 255

	// Replacement is written for characters WinAnsi cannot encode.
	Replacement = '?'
)

var winAnsi = charmap.Windows1252

// LoadTrueType parses a TrueType font and returns a simple font using
// WinAnsiEncoding with its widths taken from the glyph advances. The whole
// font file is embedded as FontFile2.
func LoadTrueType(name string, data []byte) (*semantic.Font, error) {
	tt, err := parseTrueType(name, data)
	if err != nil {
		return nil, err
	}
	return &semantic.Font{
		Subtype:    "TrueType",
		BaseFont:   tt.descriptor.FontName,
		Encoding:   "WinAnsiEncoding",
		FirstChar:  firstChar,
		Widths:     codeWidths(tt.font, tt.buf, tt.unitsPerEm, tt.ppem),
		Descriptor: tt.descriptor,
	}, nil
}

type trueType struct {
	font       *sfnt.Font
	buf        *sfnt.Buffer
	unitsPerEm sfnt.Units
	ppem       fixed.Int26_6
	descriptor *semantic.FontDescriptor
}

func parseTrueType(name string, data []byte) (*trueType, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("truetype font data is empty")
	}
	font, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	unitsPerEm := font.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, fmt.Errorf("invalid unitsPerEm")
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := font.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "CustomTT"
	}

	metrics, _ := font.Metrics(buf, ppem, xfont.HintingNone)
	bounds, _ := font.Bounds(buf, ppem, xfont.HintingNone)
	capHeight := scaleFixed(metrics.CapHeight, unitsPerEm)
	if capHeight == 0 {
		capHeight = scaleFixed(metrics.Ascent, unitsPerEm)
	}
	descriptor := &semantic.FontDescriptor{
		FontName:    baseName,
		Flags:       32, // nonsymbolic
		ItalicAngle: italicAngle(font),
		Ascent:      scaleFixed(metrics.Ascent, unitsPerEm),
		// sfnt reports descent as a positive distance below the baseline.
		Descent:   -scaleFixed(metrics.Descent, unitsPerEm),
		CapHeight: capHeight,
		StemV:     80,
		// sfnt bounds grow downwards; flip them into glyph space.
		FontBBox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		},
		FontFile:     data,
		FontFileType: "FontFile2",
	}
	return &trueType{font: font, buf: buf, unitsPerEm: unitsPerEm, ppem: ppem, descriptor: descriptor}, nil
}

// codeWidths returns the advance of every code in [firstChar, lastChar],
// in thousandths of an em.
func codeWidths(font *sfnt.Font, buf *sfnt.Buffer, unitsPerEm sfnt.Units, ppem fixed.Int26_6) []int {
	widths := make([]int, lastChar-firstChar+1)
	for code := firstChar; code <= lastChar; code++ {
		r := winAnsi.DecodeByte(byte(code))
		gid, err := font.GlyphIndex(buf, r)
		if err != nil {
			continue
		}
		adv, err := font.GlyphAdvance(buf, gid, ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		widths[code-firstChar] = int(math.Round(scaleFixed(adv, unitsPerEm)))
	}
	return widths
}

func italicAngle(font *sfnt.Font) float64 {
	post := font.PostTable()
	if post == nil {
		return 0
	}
	return post.ItalicAngle
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}

var (
	defaultOnce sync.Once
	defaultFont *semantic.Font
	defaultErr  error
)

// Default returns the embedded Go Regular font. The result is shared and
// must not be modified.
func Default() (*semantic.Font, error) {
	defaultOnce.Do(func() {
		defaultFont, defaultErr = LoadTrueType("GoRegular", goregular.TTF)
	})
	return defaultFont, defaultErr
}

// Encode maps text to WinAnsi codes. Characters outside the encoding and
// control characters become Replacement.
func Encode(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := winAnsi.EncodeRune(r)
		if !ok || b < firstChar {
			b = Replacement
		}
		out = append(out, b)
	}
	return out
}

// Unencodable returns the distinct printable characters of text that
// WinAnsi cannot encode, in order of first appearance.
func Unencodable(text string) []rune {
	var out []rune
	for _, r := range text {
		if unicode.IsControl(r) {
			continue
		}
		if _, ok := winAnsi.EncodeRune(r); !ok && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// EncodeText encodes text for font: WinAnsi codes for simple fonts and
// shaped two-byte glyph IDs for Type0 fonts.
func EncodeText(font *semantic.Font, text string) ([]byte, error) {
	if font == nil || font.DescendantFont == nil {
		return Encode(text), nil
	}
	glyphs, err := Shape(font, text)
	if err != nil {
		return nil, err
	}
	return EncodeGlyphs(glyphs), nil
}

// Width returns the advance of encoded text at size, in points.
func Width(font *semantic.Font, codes []byte, size float64) float64 {
	if font == nil {
		return 0
	}
	if cid := font.DescendantFont; cid != nil {
		return cidWidth(cid, codes, size)
	}
	sum := 0
	for _, c := range codes {
		i := int(c) - font.FirstChar
		if i >= 0 && i < len(font.Widths) {
			sum += font.Widths[i]
		}
	}
	return float64(sum) / 1000 * size
}
