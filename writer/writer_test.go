package writer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"

	"github.com/Schewwpid/note2PDF/fonts"
	"github.com/Schewwpid/note2PDF/ir/semantic"
)

func onePage(ops ...semantic.Operation) *semantic.Document {
	return &semantic.Document{
		Pages: []*semantic.Page{{
			MediaBox: semantic.Rectangle{URX: 612, URY: 792},
			Contents: []semantic.ContentStream{{Operations: ops}},
		}},
	}
}

func write(t *testing.T, doc *semantic.Document, cfg Config) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := New(cfg).Write(context.Background(), doc, &buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

func TestWriteMinimalPage(t *testing.T) {
	out := string(write(t, onePage(semantic.Operation{Operator: "q"}, semantic.Operation{Operator: "Q"}), Config{}))

	if !strings.HasPrefix(out, "%PDF-1.7\n") {
		t.Fatalf("bad header: %q", out[:12])
	}
	for _, want := range []string{
		"/MediaBox [0 0 612 792]",
		"/Type /Catalog",
		"/Count 1",
		"/ProcSet [/PDF]",
		"stream\nq\nQ\n\nendstream",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	if !strings.HasSuffix(out, "%%EOF\n") {
		t.Fatalf("missing EOF marker")
	}
}

func TestWriteXRefOffsets(t *testing.T) {
	out := write(t, onePage(), Config{Compression: 6})

	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(out)
	if m == nil {
		t.Fatalf("no startxref")
	}
	xref, _ := strconv.Atoi(string(m[1]))
	if !bytes.HasPrefix(out[xref:], []byte("xref\n0 ")) {
		t.Fatalf("startxref %d does not point at the table", xref)
	}

	entries := regexp.MustCompile(`(\d{10}) 00000 n \n`).FindAllSubmatch(out[xref:], -1)
	if len(entries) == 0 {
		t.Fatalf("no in-use entries")
	}
	for i, e := range entries {
		off, _ := strconv.Atoi(string(e[1]))
		prefix := strconv.Itoa(i+1) + " 0 obj\n"
		if !bytes.HasPrefix(out[off:], []byte(prefix)) {
			t.Errorf("entry %d at %d: got %q", i+1, off, out[off:off+len(prefix)])
		}
	}
}

func TestWriteDeterministic(t *testing.T) {
	doc := onePage(semantic.Operation{Operator: "re", Operands: []semantic.Operand{
		semantic.NumberOperand{Value: 0}, semantic.NumberOperand{Value: 0},
		semantic.NumberOperand{Value: 10}, semantic.NumberOperand{Value: 10},
	}}, semantic.Operation{Operator: "f"})
	font, err := fonts.Default()
	if err != nil {
		t.Fatalf("font: %v", err)
	}
	doc.Pages[0].Resources = &semantic.Resources{Fonts: map[string]*semantic.Font{"F1": font, "F2": font}}

	cfg := Config{Compression: 9, Deterministic: true}
	a := write(t, doc, cfg)
	b := write(t, doc, cfg)
	if !bytes.Equal(a, b) {
		t.Fatalf("deterministic output differs")
	}
	if bytes.Count(a, []byte("/FontFile2")) != 1 {
		t.Fatalf("shared font should be embedded once")
	}
}

func TestWriteCompressedContent(t *testing.T) {
	ops := []semantic.Operation{{Operator: "q"}, {Operator: "Q"}}
	out := write(t, onePage(ops...), Config{Compression: 9})

	i := bytes.Index(out, []byte("/Filter /FlateDecode"))
	if i < 0 {
		t.Fatalf("content stream not compressed")
	}
	start := bytes.Index(out[i:], []byte("stream\n")) + i + len("stream\n")
	end := bytes.Index(out[start:], []byte("\nendstream")) + start
	plain, err := io.ReadAll(flate.NewReader(bytes.NewReader(out[start:end])))
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if string(plain) != "q\nQ\n" {
		t.Fatalf("got %q", plain)
	}
}

func TestWriteResources(t *testing.T) {
	font, err := fonts.Default()
	if err != nil {
		t.Fatalf("font: %v", err)
	}
	half := 0.5
	mask := &semantic.Image{Width: 1, Height: 1, ColorSpace: semantic.DeviceColorSpace{Name: "DeviceGray"}, BitsPerComponent: 8, Data: []byte{0x80}}
	doc := onePage()
	doc.Pages[0].Resources = &semantic.Resources{
		Fonts:      map[string]*semantic.Font{"F1": font},
		ExtGStates: map[string]semantic.ExtGState{"GS1": {FillAlpha: &half}},
		XObjects: map[string]semantic.XObject{"Im1": {
			Width: 1, Height: 1, ColorSpace: semantic.DeviceColorSpace{Name: "DeviceRGB"},
			BitsPerComponent: 8, Data: []byte{1, 2, 3}, SMask: mask,
		}},
	}
	out := string(write(t, doc, Config{}))

	for _, want := range []string{
		"/Subtype /TrueType",
		"/Encoding /WinAnsiEncoding",
		"/FirstChar 32",
		"/LastChar 255",
		"/FontFile2 ",
		"/Length1 ",
		"/GS1 <</Type /ExtGState/ca 0.5>>",
		"/SMask ",
		"/ColorSpace /DeviceGray",
		"/ProcSet [/PDF /Text /ImageC]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestWriteInfo(t *testing.T) {
	doc := onePage()
	doc.Info = &semantic.DocumentInfo{Title: "Notes", Author: "Zoë", Producer: "note2pdf"}
	doc.Lang = "en"
	out := string(write(t, doc, Config{}))

	if !strings.Contains(out, "/Title (Notes)") {
		t.Errorf("ascii title not literal")
	}
	// UTF-16BE with BOM: FE FF 00 5A 00 6F 00 EB
	if !strings.Contains(out, "/Author <FEFF005A006F00EB>") {
		t.Errorf("non-ascii author not UTF-16")
	}
	if !strings.Contains(out, "/Info 3 0 R") {
		t.Errorf("trailer has no Info")
	}
	if !strings.Contains(out, "/Lang (en)") {
		t.Errorf("catalog has no Lang")
	}
}

func TestWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := New(Config{}).Write(context.Background(), &semantic.Document{}, &buf); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New(Config{}).Write(ctx, onePage(), &buf); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written on failure")
	}
}

func TestPDFNameLiteral(t *testing.T) {
	cases := map[string]string{
		"F1":        "F1",
		"Im1:SMask": "Im1#3ASMask",
		"a b":       "a#20b",
	}
	for in, want := range cases {
		if got := pdfNameLiteral(in); got != want {
			t.Errorf("pdfNameLiteral(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteType0Font(t *testing.T) {
	font := &semantic.Font{
		Subtype:  "Type0",
		BaseFont: "Demo",
		Encoding: "Identity-H",
		DescendantFont: &semantic.CIDFont{
			Subtype:         "CIDFontType2",
			CIDSystemInfo:   semantic.CIDSystemInfo{Registry: "Adobe", Ordering: "Identity"},
			DW:              1000,
			W:               map[int]int{3: 500, 4: 600, 9: 250},
			CIDToGIDMapName: "Identity",
		},
		ToUnicode: map[int][]rune{3: {'П'}, 9: {'😀'}},
	}
	doc := onePage()
	doc.Pages[0].Resources = &semantic.Resources{Fonts: map[string]*semantic.Font{"F2": font}}
	out := string(write(t, doc, Config{}))

	for _, want := range []string{
		"/Subtype /Type0",
		"/Encoding /Identity-H",
		"/DescendantFonts [",
		"/Subtype /CIDFontType2",
		"/BaseFont /Demo",
		"/CIDSystemInfo <</Ordering (Identity)/Registry (Adobe)/Supplement 0>>",
		"/CIDToGIDMap /Identity",
		"/DW 1000",
		"/W [3 [500 600] 9 [250]]",
		"/ToUnicode ",
		"1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange",
		"2 beginbfchar\n<0003> <041F>\n<0009> <D83DDE00>\nendbfchar",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestWriteDefaultCIDFontEmbedsProgram(t *testing.T) {
	font, err := fonts.DefaultCID()
	if err != nil {
		t.Fatalf("font: %v", err)
	}
	doc := onePage()
	doc.Pages[0].Resources = &semantic.Resources{Fonts: map[string]*semantic.Font{"F2": font}}
	out := string(write(t, doc, Config{Compression: 6}))

	for _, want := range []string{"/FontFile2 ", "/Flags 4", "/ToUnicode "} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(out, "/Widths") {
		t.Errorf("Type0 font should not carry simple widths")
	}
}
