package writer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Schewwpid/note2PDF/ir/raw"
	"github.com/Schewwpid/note2PDF/ir/semantic"
)

type objectBuilder struct {
	doc     *semantic.Document
	cfg     Config
	objects map[raw.ObjectRef]raw.Object
	objNum  int

	fontRefs    map[*semantic.Font]raw.ObjectRef
	xobjectRefs map[string]raw.ObjectRef
}

func newObjectBuilder(doc *semantic.Document, cfg Config, startObjNum int) *objectBuilder {
	return &objectBuilder{
		doc:         doc,
		cfg:         cfg,
		objects:     make(map[raw.ObjectRef]raw.Object),
		objNum:      startObjNum,
		fontRefs:    make(map[*semantic.Font]raw.ObjectRef),
		xobjectRefs: make(map[string]raw.ObjectRef),
	}
}

func (b *objectBuilder) nextRef() raw.ObjectRef {
	ref := raw.ObjectRef{Num: b.objNum, Gen: 0}
	b.objNum++
	return ref
}

// Build lays out every indirect object of the document and returns them with
// the catalog and (optional) info references.
func (b *objectBuilder) Build() (map[raw.ObjectRef]raw.Object, raw.ObjectRef, *raw.ObjectRef, error) {
	catalogRef := b.nextRef()
	pagesRef := b.nextRef()
	infoRef := b.addInfo()

	pageRefs := make([]raw.ObjectRef, 0, len(b.doc.Pages))
	for i, p := range b.doc.Pages {
		ref, err := b.addPage(p, pagesRef)
		if err != nil {
			return nil, raw.ObjectRef{}, nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pageRefs = append(pageRefs, ref)
	}

	kids := raw.NewArray()
	for _, r := range pageRefs {
		kids.Append(r)
	}
	pagesDict := raw.NewDict()
	pagesDict.Set("Type", raw.Name("Pages"))
	pagesDict.Set("Count", raw.Integer(len(pageRefs)))
	pagesDict.Set("Kids", kids)
	b.objects[pagesRef] = pagesDict

	catalog := raw.NewDict()
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", pagesRef)
	if b.doc.Lang != "" {
		catalog.Set("Lang", textString(b.doc.Lang))
	}
	b.objects[catalogRef] = catalog

	return b.objects, catalogRef, infoRef, nil
}

func (b *objectBuilder) addInfo() *raw.ObjectRef {
	info := b.doc.Info
	if info == nil {
		return nil
	}
	d := raw.NewDict()
	set := func(key, value string) {
		if value != "" {
			d.Set(key, textString(value))
		}
	}
	set("Title", info.Title)
	set("Author", info.Author)
	set("Subject", info.Subject)
	set("Creator", info.Creator)
	set("Producer", info.Producer)
	set("Keywords", strings.Join(info.Keywords, ","))
	if d.Len() == 0 {
		return nil
	}
	ref := b.nextRef()
	b.objects[ref] = d
	return &ref
}

func (b *objectBuilder) addPage(p *semantic.Page, parent raw.ObjectRef) (raw.ObjectRef, error) {
	ref := b.nextRef()

	var content []byte
	for _, cs := range p.Contents {
		content = append(content, serializeContentStream(cs)...)
	}
	contentRef := b.nextRef()
	cs, err := stream(raw.NewDict(), content, "", b.cfg)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	b.objects[contentRef] = cs

	res, err := b.resources(p.Resources)
	if err != nil {
		return raw.ObjectRef{}, err
	}

	page := raw.NewDict()
	page.Set("Type", raw.Name("Page"))
	page.Set("Parent", parent)
	page.Set("MediaBox", rectArray(p.MediaBox))
	page.Set("Resources", res)
	page.Set("Contents", contentRef)
	b.objects[ref] = page
	return ref, nil
}

// resources converts r into a resource dictionary. Names are visited in
// sorted order so object numbers do not depend on map iteration.
func (b *objectBuilder) resources(r *semantic.Resources) (*raw.Dict, error) {
	res := raw.NewDict()
	procSet := raw.NewArray(raw.Name("PDF"))
	if r == nil {
		res.Set("ProcSet", procSet)
		return res, nil
	}
	if len(r.Fonts) > 0 {
		fonts := raw.NewDict()
		for _, name := range slices.Sorted(maps.Keys(r.Fonts)) {
			ref := b.ensureFont(r.Fonts[name])
			fonts.Set(name, ref)
		}
		res.Set("Font", fonts)
		procSet.Append(raw.Name("Text"))
	}
	if len(r.ExtGStates) > 0 {
		states := raw.NewDict()
		for name, gs := range r.ExtGStates {
			states.Set(name, extGState(gs))
		}
		res.Set("ExtGState", states)
	}
	if len(r.XObjects) > 0 {
		xobjects := raw.NewDict()
		for _, name := range slices.Sorted(maps.Keys(r.XObjects)) {
			ref, err := b.ensureXObject(name, r.XObjects[name])
			if err != nil {
				return nil, fmt.Errorf("xobject %s: %w", name, err)
			}
			xobjects.Set(name, ref)
		}
		res.Set("XObject", xobjects)
		procSet.Append(raw.Name("ImageC"))
	}
	res.Set("ProcSet", procSet)
	return res, nil
}

func extGState(gs semantic.ExtGState) *raw.Dict {
	d := raw.NewDict()
	d.Set("Type", raw.Name("ExtGState"))
	if gs.LineWidth != nil {
		d.Set("LW", raw.Real(*gs.LineWidth))
	}
	if gs.StrokeAlpha != nil {
		d.Set("CA", raw.Real(*gs.StrokeAlpha))
	}
	if gs.FillAlpha != nil {
		d.Set("ca", raw.Real(*gs.FillAlpha))
	}
	return d
}

func (b *objectBuilder) addFontDescriptor(fd *semantic.FontDescriptor) (*raw.ObjectRef, error) {
	if fd == nil {
		return nil, nil
	}
	ref := b.nextRef()
	d := raw.NewDict()
	d.Set("Type", raw.Name("FontDescriptor"))
	name := fd.FontName
	if name == "" {
		name = "CustomFont"
	}
	d.Set("FontName", raw.Name(name))
	flags := fd.Flags
	if flags == 0 {
		flags = 32
	}
	d.Set("Flags", raw.Integer(flags))
	d.Set("ItalicAngle", raw.Real(fd.ItalicAngle))
	d.Set("Ascent", raw.Real(fd.Ascent))
	d.Set("Descent", raw.Real(fd.Descent))
	d.Set("CapHeight", raw.Real(fd.CapHeight))
	stem := fd.StemV
	if stem == 0 {
		stem = 80
	}
	d.Set("StemV", raw.Integer(stem))
	d.Set("FontBBox", raw.NewArray(
		raw.Real(fd.FontBBox[0]),
		raw.Real(fd.FontBBox[1]),
		raw.Real(fd.FontBBox[2]),
		raw.Real(fd.FontBBox[3]),
	))
	if len(fd.FontFile) > 0 {
		dict := raw.NewDict()
		dict.Set("Length1", raw.Integer(len(fd.FontFile)))
		s, err := stream(dict, fd.FontFile, "", b.cfg)
		if err != nil {
			return nil, err
		}
		streamRef := b.nextRef()
		b.objects[streamRef] = s
		key := "FontFile2"
		if fd.FontFileType != "" {
			key = fd.FontFileType
		}
		d.Set(key, streamRef)
	}
	b.objects[ref] = d
	return &ref, nil
}

// ensureFont writes f once per document. A nil font maps to the standard
// Helvetica, which needs no embedding.
func (b *objectBuilder) ensureFont(font *semantic.Font) raw.ObjectRef {
	if ref, ok := b.fontRefs[font]; ok {
		return ref
	}
	base, subtype := "Helvetica", "Type1"
	if font != nil {
		if font.BaseFont != "" {
			base = font.BaseFont
		}
		if font.Subtype != "" {
			subtype = font.Subtype
		}
	}
	ref := b.nextRef()
	d := raw.NewDict()
	d.Set("Type", raw.Name("Font"))
	d.Set("Subtype", raw.Name(subtype))
	d.Set("BaseFont", raw.Name(base))
	if font != nil {
		if font.Encoding != "" {
			d.Set("Encoding", raw.Name(font.Encoding))
		}
		if font.DescendantFont != nil {
			// Type0 fonts carry their metrics on the descendant.
			b.addType0Font(font, d)
			b.objects[ref] = d
			b.fontRefs[font] = ref
			return ref
		}
		if len(font.Widths) > 0 {
			d.Set("FirstChar", raw.Integer(font.FirstChar))
			d.Set("LastChar", raw.Integer(font.FirstChar+len(font.Widths)-1))
			d.Set("Widths", encodeWidths(font.Widths))
		}
		// Font program errors only come from compression; fall back to an
		// unembedded font rather than failing the page.
		if fd, err := b.addFontDescriptor(font.Descriptor); err == nil && fd != nil {
			d.Set("FontDescriptor", *fd)
		}
	}
	b.objects[ref] = d
	b.fontRefs[font] = ref
	return ref
}

func (b *objectBuilder) ensureXObject(name string, xo semantic.XObject) (raw.ObjectRef, error) {
	if ref, ok := b.xobjectRefs[name]; ok {
		return ref, nil
	}
	ref := b.nextRef()
	dict := raw.NewDict()
	dict.Set("Type", raw.Name("XObject"))
	dict.Set("Subtype", raw.Name("Image"))
	dict.Set("Width", raw.Integer(xo.Width))
	dict.Set("Height", raw.Integer(xo.Height))
	color := xo.ColorSpace.ColorSpaceName()
	if color == "" {
		color = "DeviceRGB"
	}
	dict.Set("ColorSpace", raw.Name(color))
	bpc := xo.BitsPerComponent
	if bpc == 0 {
		bpc = 8
	}
	dict.Set("BitsPerComponent", raw.Integer(bpc))
	if xo.Interpolate {
		dict.Set("Interpolate", raw.Bool(true))
	}
	if xo.SMask != nil {
		maskRef, err := b.ensureXObject(name+":SMask", *xo.SMask)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		dict.Set("SMask", maskRef)
	}
	s, err := stream(dict, xo.Data, xo.Filter, b.cfg)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	b.objects[ref] = s
	b.xobjectRefs[name] = ref
	return ref, nil
}
