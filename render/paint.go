package render

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/Schewwpid/note2PDF/builder"
	"github.com/Schewwpid/note2PDF/coords"
	"github.com/Schewwpid/note2PDF/fonts"
	"github.com/Schewwpid/note2PDF/ir/semantic"
	"github.com/Schewwpid/note2PDF/observability"
	"github.com/Schewwpid/note2PDF/svg"
)

const (
	textFontName = "F1"
	cidFontName  = "F2"
)

// painter replays a display list onto one page.
type painter struct {
	page    builder.PageBuilder
	font    *semantic.Font
	cidFont *semantic.Font // text WinAnsi cannot encode; may be nil
	dpi     float64
	log     observability.Logger

	page2pdf coords.Matrix
	images   map[image.Image]*semantic.Image

	// pen is the text position carried between runs of one text element.
	penX, penY float64
}

// pageMatrix stretches the drawing bounds over the page, ignoring aspect
// ratio, and flips y into PDF space.
func pageMatrix(bounds svg.Rect, width, height float64) coords.Matrix {
	if bounds.W <= 0 || bounds.H <= 0 {
		bounds = svg.Rect{W: width, H: height}
	}
	sx := width / bounds.W
	sy := height / bounds.H
	return coords.Matrix{sx, 0, 0, -sy, -bounds.X * sx, height + bounds.Y*sy}
}

func (p *painter) paint(d *svg.Drawing, width, height float64) {
	p.page2pdf = pageMatrix(d.Bounds(), width, height)
	p.images = make(map[image.Image]*semantic.Image)
	p.page.Save().Transform(p.page2pdf)
	for _, it := range d.Items {
		switch v := it.(type) {
		case *svg.Shape:
			p.shape(v)
		case *svg.Image:
			p.image(v)
		case *svg.Text:
			p.text(v)
		}
	}
	p.page.Restore()
}

func invertible(m coords.Matrix) bool {
	_, err := m.Inverse()
	return err == nil
}

func color(c *svg.Color) builder.Color {
	if c == nil {
		return builder.Color{}
	}
	return builder.Color{R: c.R, G: c.G, B: c.B}
}

func alpha(v float64) *float64 {
	if v >= 1 {
		return nil
	}
	return builder.Alpha(v)
}

func (p *painter) shape(s *svg.Shape) {
	if !invertible(s.CTM) {
		return
	}
	opts := builder.PathOptions{
		Fill:        s.Fill != nil,
		FillColor:   color(s.Fill),
		FillRule:    s.FillRule,
		FillAlpha:   alpha(s.FillOpacity),
		Stroke:      s.Stroke != nil && s.StrokeWidth > 0,
		StrokeColor: color(s.Stroke),
		StrokeAlpha: alpha(s.StrokeOpacity),
		LineWidth:   s.StrokeWidth,
		LineCap:     s.LineCap,
		LineJoin:    s.LineJoin,
		MiterLimit:  s.MiterLimit,
		DashPattern: s.Dash,
		DashPhase:   s.DashOffset,
	}
	if !opts.Fill && !opts.Stroke {
		return
	}
	p.page.Save().Transform(s.CTM)
	if r := s.Rect; r != nil {
		p.page.DrawRectangle(r.X, r.Y, r.W, r.H, opts)
	} else {
		p.page.DrawPath(s.Path, opts)
	}
	p.page.Restore()
}

func (p *painter) image(im *svg.Image) {
	if !invertible(im.CTM) || im.Dest.W == 0 || im.Dest.H == 0 {
		return
	}
	// Device size of the destination box in points.
	full := im.CTM.Multiply(p.page2pdf)
	wPt := math.Abs(im.Dest.W) * math.Hypot(full[0], full[1])
	hPt := math.Abs(im.Dest.H) * math.Hypot(full[2], full[3])

	pdfImg := p.images[im.Src]
	if pdfImg == nil {
		src := downsample(im.Src, wPt, hPt, p.dpi)
		pdfImg = builder.FromImage(src)
		p.images[im.Src] = pdfImg
		if src != im.Src {
			b := im.Src.Bounds()
			p.log.Debug("image downsampled",
				observability.Int("from_width", b.Dx()), observability.Int("from_height", b.Dy()),
				observability.Int("to_width", pdfImg.Width), observability.Int("to_height", pdfImg.Height),
			)
		}
	}

	p.page.Save().Transform(im.CTM)
	if im.Clip != nil {
		p.page.ClipRect(im.Clip.X, im.Clip.Y, im.Clip.W, im.Clip.H)
	}
	// The image unit square has its origin bottom-left; user space is y-down.
	p.page.DrawImage(pdfImg, im.Dest.X, im.Dest.Y+im.Dest.H, im.Dest.W, -im.Dest.H, builder.ImageOptions{
		Interpolate: true,
		Alpha:       alpha(im.Opacity),
	})
	p.page.Restore()
}

// downsample scales src so that its pixel density at the placed size does
// not exceed dpi. Images already at or below that density are returned as is.
func downsample(src image.Image, wPt, hPt, dpi float64) image.Image {
	b := src.Bounds()
	maxW := int(math.Ceil(wPt / pointsPerInch * dpi))
	maxH := int(math.Ceil(hPt / pointsPerInch * dpi))
	if maxW < 1 {
		maxW = 1
	}
	if maxH < 1 {
		maxH = 1
	}
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return src
	}
	w, h := min(b.Dx(), maxW), min(b.Dy(), maxH)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func (p *painter) text(t *svg.Text) {
	if t.NewChunk {
		p.penX, p.penY = 0, 0
	}
	x, y := p.penX, p.penY
	if !t.AutoX {
		x = t.X
	}
	if !t.AutoY {
		y = t.Y
	}
	x += t.DX
	y += t.DY

	font, fontName, codes := p.textCodes(t.Content)
	w := fonts.Width(font, codes, t.FontSize)
	switch t.Anchor {
	case svg.AnchorMiddle:
		x -= w / 2
	case svg.AnchorEnd:
		x -= w
	}
	p.penX, p.penY = x+w, y

	if t.Fill == nil || t.Content == "" || !invertible(t.CTM) {
		return
	}
	// Glyphs are drawn upright: flip y back around the baseline origin.
	p.page.Save().
		Transform(t.CTM).
		Transform(coords.Matrix{1, 0, 0, -1, x, y}).
		DrawText(t.Content, 0, 0, builder.TextOptions{
			Font:      fontName,
			FontSize:  t.FontSize,
			Color:     color(t.Fill),
			FillAlpha: alpha(t.FillOpacity),
		}).
		Restore()
}

// textCodes picks the font for one run: the WinAnsi font when it can encode
// every character, the Type0 font otherwise. Characters neither can draw
// are logged.
func (p *painter) textCodes(content string) (*semantic.Font, string, []byte) {
	lost := fonts.Unencodable(content)
	if len(lost) == 0 || p.cidFont == nil {
		p.warnLost(content, lost)
		return p.font, textFontName, fonts.Encode(content)
	}
	glyphs, err := fonts.Shape(p.cidFont, content)
	if err != nil {
		p.log.Warn("text shaping failed", observability.String("text", content), observability.Error("error", err))
		p.warnLost(content, lost)
		return p.font, textFontName, fonts.Encode(content)
	}
	p.warnLost(content, fonts.Missing(glyphs, content))
	return p.cidFont, cidFontName, fonts.EncodeGlyphs(glyphs)
}

func (p *painter) warnLost(content string, lost []rune) {
	if len(lost) == 0 {
		return
	}
	p.log.Warn("text characters have no glyph",
		observability.String("characters", string(lost)),
		observability.String("text", content),
	)
}
