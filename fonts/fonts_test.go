package fonts

import (
	"testing"

	"github.com/Schewwpid/note2PDF/ir/semantic"
)

func TestDefaultFont(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("load default font: %v", err)
	}
	if f.Subtype != "TrueType" || f.Encoding != "WinAnsiEncoding" {
		t.Fatalf("unexpected font type %s/%s", f.Subtype, f.Encoding)
	}
	if f.FirstChar != 32 || len(f.Widths) != 224 {
		t.Fatalf("unexpected width table: first=%d len=%d", f.FirstChar, len(f.Widths))
	}
	if f.Descriptor == nil || len(f.Descriptor.FontFile) == 0 || f.Descriptor.FontFileType != "FontFile2" {
		t.Fatalf("font file not attached")
	}
	if f.Descriptor.Ascent <= 0 || f.Descriptor.Descent >= 0 {
		t.Fatalf("ascent/descent signs wrong: %v %v", f.Descriptor.Ascent, f.Descriptor.Descent)
	}
	if w := f.Widths['M'-32]; w <= f.Widths['i'-32] {
		t.Fatalf("expected M wider than i, got %d vs %d", w, f.Widths['i'-32])
	}
	again, _ := Default()
	if again != f {
		t.Fatalf("default font should be loaded once")
	}
}

func TestEncode(t *testing.T) {
	got := Encode("A€é中\n")
	want := []byte{'A', 0x80, 0xe9, '?', '?'}
	if string(got) != string(want) {
		t.Fatalf("Encode = %x, want %x", got, want)
	}
}

func TestWidth(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("load default font: %v", err)
	}
	one := Width(f, Encode("a"), 10)
	two := Width(f, Encode("aa"), 10)
	if one <= 0 || two != 2*one {
		t.Fatalf("widths not additive: %v %v", one, two)
	}
	if Width(f, Encode("a"), 20) != 2*one {
		t.Fatalf("width does not scale with size")
	}
	if Width(nil, []byte("a"), 10) != 0 {
		t.Fatalf("nil font should measure zero")
	}
}

func TestLoadTrueTypeRejectsGarbage(t *testing.T) {
	if _, err := LoadTrueType("x", nil); err == nil {
		t.Fatalf("expected error for empty data")
	}
	if _, err := LoadTrueType("x", []byte("not a font")); err == nil {
		t.Fatalf("expected error for invalid data")
	}
}

func TestUnencodable(t *testing.T) {
	got := string(Unencodable("café Привет\tП"))
	if got != "Привет" {
		t.Fatalf("Unencodable = %q, want %q", got, "Привет")
	}
	if len(Unencodable("plain €")) != 0 {
		t.Fatalf("WinAnsi text reported as unencodable")
	}
}

func TestDefaultCIDFont(t *testing.T) {
	f, err := DefaultCID()
	if err != nil {
		t.Fatalf("load cid font: %v", err)
	}
	if f.Subtype != "Type0" || f.Encoding != "Identity-H" {
		t.Fatalf("unexpected font type %s/%s", f.Subtype, f.Encoding)
	}
	cid := f.DescendantFont
	if cid == nil || cid.Subtype != "CIDFontType2" || cid.CIDToGIDMapName != "Identity" {
		t.Fatalf("descendant font not set up: %+v", cid)
	}
	if cid.Descriptor == nil || len(cid.Descriptor.FontFile) == 0 {
		t.Fatalf("font file not attached to descendant")
	}
	if len(cid.W) == 0 || len(f.ToUnicode) == 0 {
		t.Fatalf("missing widths or ToUnicode map")
	}
	plain, _ := Default()
	if plain.Descriptor.Flags != 32 {
		t.Fatalf("loading the cid font changed the simple descriptor")
	}
}

func TestShapeNonLatin(t *testing.T) {
	f, err := DefaultCID()
	if err != nil {
		t.Fatalf("load cid font: %v", err)
	}
	text := "Привет αβ"
	glyphs, err := Shape(f, text)
	if err != nil {
		t.Fatalf("shape: %v", err)
	}
	if len(glyphs) != len([]rune(text)) {
		t.Fatalf("got %d glyphs for %d runes", len(glyphs), len([]rune(text)))
	}
	for _, g := range glyphs {
		if g.ID == 0 {
			t.Fatalf("glyph for %q missing", []rune(text)[g.Cluster])
		}
		if len(f.ToUnicode[g.ID]) == 0 {
			t.Fatalf("glyph %d has no ToUnicode entry", g.ID)
		}
	}
	if missing := Missing(glyphs, text); len(missing) != 0 {
		t.Fatalf("unexpected missing characters %q", string(missing))
	}

	codes, err := EncodeText(f, text)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(codes) != 2*len(glyphs) || codes[0] != byte(glyphs[0].ID>>8) || codes[1] != byte(glyphs[0].ID) {
		t.Fatalf("codes not two-byte glyph IDs: %x", codes)
	}
	if w := Width(f, codes, 10); w <= 0 {
		t.Fatalf("width = %v, want positive", w)
	}
}

func TestShapeReportsMissingGlyphs(t *testing.T) {
	f, err := DefaultCID()
	if err != nil {
		t.Fatalf("load cid font: %v", err)
	}
	text := "a漢a漢"
	glyphs, err := Shape(f, text)
	if err != nil {
		t.Fatalf("shape: %v", err)
	}
	if got := string(Missing(glyphs, text)); got != "漢" {
		t.Fatalf("Missing = %q, want %q", got, "漢")
	}
}

func TestShapeWithoutFontFile(t *testing.T) {
	if _, err := Shape(&semantic.Font{Subtype: "Type1"}, "x"); err == nil {
		t.Fatalf("expected error for font without program")
	}
	if glyphs, err := Shape(&semantic.Font{}, ""); err != nil || glyphs != nil {
		t.Fatalf("empty text should shape to nothing, got %v %v", glyphs, err)
	}
}
