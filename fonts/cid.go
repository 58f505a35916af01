package fonts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/Schewwpid/note2PDF/ir/semantic"
)

var errNoFontFile = errors.New("fonts: font has no embedded TrueType data")

// LoadCIDTrueType parses a TrueType font and returns a Type0 font with
// Identity-H encoding. Text set in it is written as two-byte glyph IDs; the
// width table covers every glyph and the ToUnicode map covers every glyph
// the BMP cmap reaches.
func LoadCIDTrueType(name string, data []byte) (*semantic.Font, error) {
	tt, err := parseTrueType(name, data)
	if err != nil {
		return nil, err
	}
	n := tt.font.NumGlyphs()
	widths := make(map[int]int, n)
	for gid := 0; gid < n; gid++ {
		adv, err := tt.font.GlyphAdvance(tt.buf, sfnt.GlyphIndex(gid), tt.ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		widths[gid] = int(math.Round(scaleFixed(adv, tt.unitsPerEm)))
	}

	toUnicode := make(map[int][]rune)
	for r := rune(firstChar); r <= 0xFFFF; r++ {
		if r >= 0xD800 && r <= 0xDFFF {
			continue
		}
		gid, err := tt.font.GlyphIndex(tt.buf, r)
		if err != nil || gid == 0 {
			continue
		}
		if _, seen := toUnicode[int(gid)]; !seen {
			toUnicode[int(gid)] = []rune{r}
		}
	}

	desc := *tt.descriptor
	desc.Flags = 4 // symbolic
	return &semantic.Font{
		Subtype:  "Type0",
		BaseFont: desc.FontName,
		Encoding: "Identity-H",
		DescendantFont: &semantic.CIDFont{
			Subtype:         "CIDFontType2",
			BaseFont:        desc.FontName,
			CIDSystemInfo:   semantic.CIDSystemInfo{Registry: "Adobe", Ordering: "Identity"},
			DW:              1000,
			W:               widths,
			CIDToGIDMapName: "Identity",
			Descriptor:      &desc,
		},
		ToUnicode: toUnicode,
	}, nil
}

var (
	cidOnce sync.Once
	cidFont *semantic.Font
	cidErr  error
)

// DefaultCID returns the embedded Go Regular font as a Type0 font. The
// result is shared and must not be modified.
func DefaultCID() (*semantic.Font, error) {
	cidOnce.Do(func() {
		cidFont, cidErr = LoadCIDTrueType("GoRegular", goregular.TTF)
	})
	return cidFont, cidErr
}

// Glyph is one shaped glyph.
type Glyph struct {
	ID      int
	Cluster int     // index of the first rune the glyph was shaped from
	Advance float64 // thousandths of an em
}

// faces keeps parsed go-text faces per font file. A face is used by one
// shaping call at a time.
var faces sync.Map // *semantic.FontDescriptor -> *facePool

type facePool struct {
	data []byte
	pool sync.Pool
}

func (p *facePool) get() (*gofont.Face, error) {
	if face, ok := p.pool.Get().(*gofont.Face); ok {
		return face, nil
	}
	return gofont.ParseTTF(bytes.NewReader(p.data))
}

func (p *facePool) put(face *gofont.Face) { p.pool.Put(face) }

func poolFor(font *semantic.Font) (*facePool, error) {
	desc := font.Descriptor
	if font.DescendantFont != nil {
		desc = font.DescendantFont.Descriptor
	}
	if desc == nil || len(desc.FontFile) == 0 {
		return nil, errNoFontFile
	}
	if p, ok := faces.Load(desc); ok {
		return p.(*facePool), nil
	}
	p, _ := faces.LoadOrStore(desc, &facePool{data: desc.FontFile})
	return p.(*facePool), nil
}

// shapeSize sets 1000 units per em, so advances come out in glyph space.
const shapeSize = fixed.Int26_6(1000 * 64)

// Shape runs text through the HarfBuzz shaper with font's embedded file and
// returns the glyphs in visual order. Characters the font lacks come back as
// glyph 0.
func Shape(font *semantic.Font, text string) ([]Glyph, error) {
	if font == nil {
		return nil, errNoFontFile
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	pool, err := poolFor(font)
	if err != nil {
		return nil, err
	}
	face, err := pool.get()
	if err != nil {
		return nil, err
	}
	defer pool.put(face)

	script := detectScript(runes)
	var shaper shaping.HarfbuzzShaper
	output := shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      face,
		Size:      shapeSize,
		Script:    script,
		Language:  language.DefaultLanguage(),
	})

	glyphs := make([]Glyph, 0, len(output.Glyphs))
	for _, g := range output.Glyphs {
		glyphs = append(glyphs, Glyph{
			ID:      int(g.GlyphID),
			Cluster: int(g.ClusterIndex),
			Advance: float64(g.XAdvance) / 64,
		})
	}
	return glyphs, nil
}

// EncodeGlyphs writes glyph IDs as big-endian two-byte Identity-H codes.
func EncodeGlyphs(glyphs []Glyph) []byte {
	out := make([]byte, 0, 2*len(glyphs))
	for _, g := range glyphs {
		out = binary.BigEndian.AppendUint16(out, uint16(g.ID))
	}
	return out
}

// Missing returns the distinct printable characters of text that shaped to
// glyph 0.
func Missing(glyphs []Glyph, text string) []rune {
	runes := []rune(text)
	var out []rune
	for _, g := range glyphs {
		if g.ID != 0 || g.Cluster < 0 || g.Cluster >= len(runes) {
			continue
		}
		r := runes[g.Cluster]
		if !unicode.IsControl(r) && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

func cidWidth(cid *semantic.CIDFont, codes []byte, size float64) float64 {
	sum := 0
	for i := 0; i+1 < len(codes); i += 2 {
		gid := int(binary.BigEndian.Uint16(codes[i:]))
		w, ok := cid.W[gid]
		if !ok {
			w = cid.DW
		}
		sum += w
	}
	return float64(sum) / 1000 * size
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

// detectScript picks the most frequent script in runes, Latin when none is
// recognised.
func detectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	best, bestCount := language.Latin, 0
	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > bestCount {
			best, bestCount = script, counts[script]
		}
	}
	return best
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Thai, r):
		return language.Thai
	case unicode.Is(unicode.Devanagari, r):
		return language.Devanagari
	case unicode.Is(unicode.Han, r):
		return language.Han
	case unicode.Is(unicode.Hiragana, r):
		return language.Hiragana
	case unicode.Is(unicode.Katakana, r):
		return language.Katakana
	case unicode.Is(unicode.Hangul, r):
		return language.Hangul
	}
	return language.Unknown
}
