package builder

import (
	"fmt"

	"github.com/Schewwpid/note2PDF/contentstream"
	"github.com/Schewwpid/note2PDF/coords"
	"github.com/Schewwpid/note2PDF/fonts"
	"github.com/Schewwpid/note2PDF/ir/semantic"
)

// PDFBuilder provides a fluent API for PDF construction.
type PDFBuilder interface {
	NewPage(width, height float64) PageBuilder
	SetInfo(info *semantic.DocumentInfo) PDFBuilder
	SetLanguage(lang string) PDFBuilder
	RegisterFont(name string, font *semantic.Font) PDFBuilder
	Build() (*semantic.Document, error)
}

// PageBuilder provides a fluent API for page construction.
type PageBuilder interface {
	DrawText(text string, x, y float64, opts TextOptions) PageBuilder
	DrawPath(path *contentstream.Path, opts PathOptions) PageBuilder
	DrawImage(img *semantic.Image, x, y, width, height float64, opts ImageOptions) PageBuilder
	DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder
	ClipRect(x, y, width, height float64) PageBuilder
	Transform(m coords.Matrix) PageBuilder
	Save() PageBuilder
	Restore() PageBuilder
	Finish() PDFBuilder
}

// TextOptions configures text drawing.
type TextOptions struct {
	Font      string
	FontSize  float64
	Color     Color
	FillAlpha *float64
	// Invisible sets text render mode 3; the text is laid out but not painted.
	Invisible bool
}

// PathOptions configures path drawing.
type PathOptions struct {
	StrokeColor Color
	FillColor   Color
	FillRule    contentstream.FillRule
	LineWidth   float64
	LineCap     contentstream.LineCap
	LineJoin    contentstream.LineJoin
	MiterLimit  float64
	DashPattern []float64
	DashPhase   float64
	Fill        bool
	Stroke      bool
	FillAlpha   *float64
	StrokeAlpha *float64
}

// RectOptions configures rectangle drawing (defaults to stroke if neither fill nor stroke is set).
type RectOptions = PathOptions

// ImageOptions configures image drawing.
type ImageOptions struct {
	Interpolate bool
	SMask       *semantic.Image
	Alpha       *float64
}

// Color represents an RGB color.
type Color struct {
	R, G, B float64
}

// Alpha returns a pointer to v for the alpha fields of the option structs.
func Alpha(v float64) *float64 { return &v }

type alphaKey struct {
	fill, stroke float64
}

type builderImpl struct {
	pages        []*semantic.Page
	info         *semantic.DocumentInfo
	lang         string
	fonts        map[string]*semantic.Font
	defaultFont  string
	fontErr      error
	xobjectCount int
	xobjectNames map[*semantic.Image]string
	gstateCount  int
	gstateNames  map[alphaKey]string
}

type pageBuilderImpl struct {
	parent *builderImpl
	page   *semantic.Page
	depth  int // open q operators
}

const defaultFontResource = "F1"

// NewBuilder constructs a PDFBuilder.
func NewBuilder() PDFBuilder { return &builderImpl{defaultFont: defaultFontResource} }

func (b *builderImpl) NewPage(w, h float64) PageBuilder {
	p := &semantic.Page{MediaBox: semantic.Rectangle{LLX: 0, LLY: 0, URX: w, URY: h}}
	b.pages = append(b.pages, p)
	return &pageBuilderImpl{parent: b, page: p}
}

func (b *builderImpl) SetInfo(info *semantic.DocumentInfo) PDFBuilder {
	b.info = info
	return b
}

func (b *builderImpl) SetLanguage(lang string) PDFBuilder {
	b.lang = lang
	return b
}

func (b *builderImpl) RegisterFont(name string, font *semantic.Font) PDFBuilder {
	if b.fonts == nil {
		b.fonts = make(map[string]*semantic.Font)
	}
	if font == nil {
		return b
	}
	b.fonts[name] = font
	return b
}

func (b *builderImpl) Build() (*semantic.Document, error) {
	if b.fontErr != nil {
		return nil, b.fontErr
	}
	for i, p := range b.pages {
		p.Index = i
	}
	return &semantic.Document{
		Pages: b.pages,
		Info:  b.info,
		Lang:  b.lang,
	}, nil
}

func (p *pageBuilderImpl) DrawText(text string, x, y float64, opts TextOptions) PageBuilder {
	if text == "" {
		return p
	}
	font, fontName, err := p.parent.fontForName(opts.Font)
	if err != nil {
		p.parent.fontErr = err
		return p
	}
	codes, err := fonts.EncodeText(font, text)
	if err != nil {
		p.parent.fontErr = fmt.Errorf("encode text in %s: %w", fontName, err)
		return p
	}
	res := p.ensureResources()
	if _, ok := res.Fonts[fontName]; !ok {
		res.Fonts[fontName] = font
	}
	size := opts.FontSize
	if size <= 0 {
		size = 12
	}

	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "q"})
	p.appendAlpha(ops, opts.FillAlpha, nil)
	*ops = append(*ops, semantic.Operation{Operator: "BT"})
	*ops = append(*ops, semantic.Operation{
		Operator: "Tf",
		Operands: []semantic.Operand{semantic.NameOperand{Value: fontName}, semantic.NumberOperand{Value: size}},
	})
	if opts.Invisible {
		*ops = append(*ops, semantic.Operation{Operator: "Tr", Operands: []semantic.Operand{semantic.NumberOperand{Value: 3}}})
	}
	*ops = append(*ops, semantic.Operation{
		Operator: "Tm",
		Operands: numbers(1, 0, 0, 1, x, y),
	})
	*ops = append(*ops, semantic.Operation{Operator: "rg", Operands: colorOperands(opts.Color)})
	*ops = append(*ops, semantic.Operation{
		Operator: "Tj",
		Operands: []semantic.Operand{semantic.StringOperand{Value: codes}},
	})
	*ops = append(*ops, semantic.Operation{Operator: "ET"})
	*ops = append(*ops, semantic.Operation{Operator: "Q"})
	return p
}

func (p *pageBuilderImpl) DrawPath(path *contentstream.Path, opts PathOptions) PageBuilder {
	if path.Empty() || (!opts.Fill && !opts.Stroke) {
		return p
	}
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "q"})
	p.applyPathState(ops, opts)
	p.appendPathOps(ops, path)
	*ops = append(*ops, semantic.Operation{Operator: paintOperator(opts.Fill, opts.Stroke, opts.FillRule)})
	*ops = append(*ops, semantic.Operation{Operator: "Q"})
	return p
}

func (p *pageBuilderImpl) DrawImage(img *semantic.Image, x, y, width, height float64, opts ImageOptions) PageBuilder {
	if img == nil {
		return p
	}
	res := p.ensureResources()

	name := p.parent.imageName(img)
	if _, exists := res.XObjects[name]; !exists {
		xobj := semantic.XObject(*img)
		xobj.Subtype = "Image"
		if opts.Interpolate {
			xobj.Interpolate = true
		}
		if opts.SMask != nil {
			xobj.SMask = opts.SMask
		}
		res.XObjects[name] = xobj
	}
	w := width
	if w == 0 {
		w = float64(img.Width)
	}
	h := height
	if h == 0 {
		h = float64(img.Height)
	}

	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "q"})
	p.appendAlpha(ops, opts.Alpha, nil)
	*ops = append(*ops, semantic.Operation{
		Operator: "cm",
		Operands: numbers(w, 0, 0, h, x, y),
	})
	*ops = append(*ops, semantic.Operation{
		Operator: "Do",
		Operands: []semantic.Operand{semantic.NameOperand{Value: name}},
	})
	*ops = append(*ops, semantic.Operation{Operator: "Q"})
	return p
}

func (p *pageBuilderImpl) DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder {
	po := opts
	if !po.Stroke && !po.Fill {
		po.Stroke = true
	}
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "q"})
	p.applyPathState(ops, po)
	*ops = append(*ops, semantic.Operation{
		Operator: "re",
		Operands: numbers(x, y, width, height),
	})
	*ops = append(*ops, semantic.Operation{Operator: paintOperator(po.Fill, po.Stroke, po.FillRule)})
	*ops = append(*ops, semantic.Operation{Operator: "Q"})
	return p
}

// ClipRect intersects the clipping region with a rectangle until the
// enclosing Restore.
func (p *pageBuilderImpl) ClipRect(x, y, width, height float64) PageBuilder {
	ops := p.ensureContentOps()
	*ops = append(*ops,
		semantic.Operation{Operator: "re", Operands: numbers(x, y, width, height)},
		semantic.Operation{Operator: "W"},
		semantic.Operation{Operator: "n"},
	)
	return p
}

// Transform concatenates m onto the current transformation matrix.
func (p *pageBuilderImpl) Transform(m coords.Matrix) PageBuilder {
	if m.IsIdentity() {
		return p
	}
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "cm", Operands: numbers(m[:]...)})
	return p
}

func (p *pageBuilderImpl) Save() PageBuilder {
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "q"})
	p.depth++
	return p
}

// Restore pops one Save. Unbalanced calls are ignored.
func (p *pageBuilderImpl) Restore() PageBuilder {
	if p.depth == 0 {
		return p
	}
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "Q"})
	p.depth--
	return p
}

// Finish closes any open Save and returns to the document builder.
func (p *pageBuilderImpl) Finish() PDFBuilder {
	for p.depth > 0 {
		p.Restore()
	}
	return p.parent
}

func (b *builderImpl) fontForName(name string) (*semantic.Font, string, error) {
	if name == "" {
		name = b.defaultFont
	}
	if f, ok := b.fonts[name]; ok {
		return f, name, nil
	}
	font, err := fonts.Default()
	if err != nil {
		return nil, "", fmt.Errorf("load default font: %w", err)
	}
	b.RegisterFont(name, font)
	return font, name, nil
}

// MeasureText returns the advance of text in points when set in the named
// font (empty selects the default).
func MeasureText(b PDFBuilder, text string, fontSize float64, fontName string) float64 {
	impl, ok := b.(*builderImpl)
	if !ok {
		return 0
	}
	font, _, err := impl.fontForName(fontName)
	if err != nil {
		return 0
	}
	if fontSize <= 0 {
		fontSize = 12
	}
	codes, err := fonts.EncodeText(font, text)
	if err != nil {
		return 0
	}
	return fonts.Width(font, codes, fontSize)
}

func (b *builderImpl) imageName(img *semantic.Image) string {
	if b.xobjectNames == nil {
		b.xobjectNames = make(map[*semantic.Image]string)
	}
	if name, ok := b.xobjectNames[img]; ok {
		return name
	}
	b.xobjectCount++
	name := fmt.Sprintf("Im%d", b.xobjectCount)
	b.xobjectNames[img] = name
	return name
}

// gstateName returns the shared ExtGState resource for an alpha pair.
func (b *builderImpl) gstateName(key alphaKey) string {
	if b.gstateNames == nil {
		b.gstateNames = make(map[alphaKey]string)
	}
	if name, ok := b.gstateNames[key]; ok {
		return name
	}
	b.gstateCount++
	name := fmt.Sprintf("GS%d", b.gstateCount)
	b.gstateNames[key] = name
	return name
}

func (p *pageBuilderImpl) ensureResources() *semantic.Resources {
	if p.page.Resources == nil {
		p.page.Resources = &semantic.Resources{}
	}
	if p.page.Resources.Fonts == nil {
		p.page.Resources.Fonts = make(map[string]*semantic.Font)
	}
	if p.page.Resources.ExtGStates == nil {
		p.page.Resources.ExtGStates = make(map[string]semantic.ExtGState)
	}
	if p.page.Resources.XObjects == nil {
		p.page.Resources.XObjects = make(map[string]semantic.XObject)
	}
	return p.page.Resources
}

func (p *pageBuilderImpl) ensureContentOps() *[]semantic.Operation {
	if len(p.page.Contents) == 0 {
		p.page.Contents = append(p.page.Contents, semantic.ContentStream{})
	}
	return &p.page.Contents[0].Operations
}

// appendAlpha selects an ExtGState carrying the given alphas. Fully opaque
// or unset values need none.
func (p *pageBuilderImpl) appendAlpha(ops *[]semantic.Operation, fill, stroke *float64) {
	key := alphaKey{fill: 1, stroke: 1}
	if fill != nil {
		key.fill = clampAlpha(*fill)
	}
	if stroke != nil {
		key.stroke = clampAlpha(*stroke)
	}
	if key.fill == 1 && key.stroke == 1 {
		return
	}
	name := p.parent.gstateName(key)
	res := p.ensureResources()
	if _, ok := res.ExtGStates[name]; !ok {
		fa, sa := key.fill, key.stroke
		res.ExtGStates[name] = semantic.ExtGState{FillAlpha: &fa, StrokeAlpha: &sa}
	}
	*ops = append(*ops, semantic.Operation{Operator: "gs", Operands: []semantic.Operand{semantic.NameOperand{Value: name}}})
}

func clampAlpha(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func (p *pageBuilderImpl) applyPathState(ops *[]semantic.Operation, opts PathOptions) {
	var fillAlpha, strokeAlpha *float64
	if opts.Fill {
		fillAlpha = opts.FillAlpha
	}
	if opts.Stroke {
		strokeAlpha = opts.StrokeAlpha
	}
	p.appendAlpha(ops, fillAlpha, strokeAlpha)
	if opts.Fill {
		*ops = append(*ops, semantic.Operation{Operator: "rg", Operands: colorOperands(opts.FillColor)})
	}
	if opts.Stroke {
		*ops = append(*ops, semantic.Operation{Operator: "RG", Operands: colorOperands(opts.StrokeColor)})
		*ops = append(*ops, semantic.Operation{Operator: "w", Operands: numbers(opts.LineWidth)})
		if opts.LineCap != contentstream.LineCapButt {
			*ops = append(*ops, semantic.Operation{Operator: "J", Operands: numbers(float64(opts.LineCap))})
		}
		if opts.LineJoin != contentstream.LineJoinMiter {
			*ops = append(*ops, semantic.Operation{Operator: "j", Operands: numbers(float64(opts.LineJoin))})
		}
		if opts.MiterLimit >= 1 && opts.MiterLimit != 10 {
			*ops = append(*ops, semantic.Operation{Operator: "M", Operands: numbers(opts.MiterLimit)})
		}
		if len(opts.DashPattern) > 0 {
			vals := make([]semantic.Operand, 0, len(opts.DashPattern))
			for _, v := range opts.DashPattern {
				vals = append(vals, semantic.NumberOperand{Value: v})
			}
			*ops = append(*ops, semantic.Operation{
				Operator: "d",
				Operands: []semantic.Operand{
					semantic.ArrayOperand{Values: vals},
					semantic.NumberOperand{Value: opts.DashPhase},
				},
			})
		}
	}
}

func (p *pageBuilderImpl) appendPathOps(ops *[]semantic.Operation, path *contentstream.Path) {
	for _, sp := range path.Subpaths {
		for _, point := range sp.Points {
			switch point.Type {
			case contentstream.PathMoveTo:
				*ops = append(*ops, semantic.Operation{Operator: "m", Operands: numbers(point.X, point.Y)})
			case contentstream.PathLineTo:
				*ops = append(*ops, semantic.Operation{Operator: "l", Operands: numbers(point.X, point.Y)})
			case contentstream.PathCurveTo:
				*ops = append(*ops, semantic.Operation{
					Operator: "c",
					Operands: numbers(point.Control1X, point.Control1Y, point.Control2X, point.Control2Y, point.X, point.Y),
				})
			case contentstream.PathClose:
				*ops = append(*ops, semantic.Operation{Operator: "h"})
			}
		}
		if sp.Closed {
			*ops = append(*ops, semantic.Operation{Operator: "h"})
		}
	}
}

func numbers(vs ...float64) []semantic.Operand {
	out := make([]semantic.Operand, len(vs))
	for i, v := range vs {
		out[i] = semantic.NumberOperand{Value: v}
	}
	return out
}

func colorOperands(c Color) []semantic.Operand {
	return numbers(c.R, c.G, c.B)
}

func paintOperator(fill, stroke bool, rule contentstream.FillRule) string {
	evenOdd := rule == contentstream.FillEvenOdd
	switch {
	case fill && stroke && evenOdd:
		return "B*"
	case fill && stroke:
		return "B"
	case fill && evenOdd:
		return "f*"
	case fill:
		return "f"
	default:
		return "S"
	}
}
