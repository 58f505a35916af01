package svg

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/url"
	"strings"

	// Raster formats accepted in data URIs.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Schewwpid/note2PDF/coords"
)

var errNotDataURI = errors.New("only data: URIs are embedded")

func (w *walker) image(n *node, st style, ctm coords.Matrix, vp viewport) {
	if st.hidden {
		return
	}
	href, ok := n.attrs["href"]
	if !ok {
		return
	}
	img, format, err := decodeDataURI(href)
	if err != nil {
		w.warn("<image>: %v", err)
		return
	}
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw == 0 || ih == 0 {
		return
	}
	x := attrLength(n, "x", vp.w, st.fontSize, 0)
	y := attrLength(n, "y", vp.h, st.fontSize, 0)
	width := attrLength(n, "width", vp.w, st.fontSize, iw)
	height := attrLength(n, "height", vp.h, st.fontSize, ih)
	if width <= 0 || height <= 0 {
		return
	}
	box := Rect{X: x, Y: y, W: width, H: height}
	a := parseAspect(n.attrs["preserveAspectRatio"])
	m := viewBoxTransform(Rect{W: iw, H: ih}, box, a)

	item := &Image{
		Src:     img,
		Format:  format,
		Dest:    Rect{X: m[4], Y: m[5], W: iw * m[0], H: ih * m[3]},
		CTM:     ctm,
		Opacity: st.opacity,
	}
	if a.slice {
		item.Clip = &box
	}
	w.d.Items = append(w.d.Items, item)
}

// decodeDataURI decodes an inline image of the form
// data:[<media type>][;base64],<payload>.
func decodeDataURI(uri string) (image.Image, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return nil, "", errNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("data URI has no payload")
	}
	var raw []byte
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		clean := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				return -1
			}
			return r
		}, payload)
		var err error
		raw, err = base64.StdEncoding.DecodeString(clean)
		if err != nil {
			raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "="))
			if err != nil {
				return nil, "", fmt.Errorf("data URI: %w", err)
			}
		}
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("data URI: %w", err)
		}
		raw = []byte(s)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("data URI: %w", err)
	}
	return img, format, nil
}
