package builder

import (
	"image"
	"image/draw"

	"github.com/Schewwpid/note2PDF/ir/semantic"
)

// FromImage converts an image.Image to *semantic.Image. Colour samples are
// stored as DeviceRGB (or DeviceGray for gray sources) and transparency
// becomes a DeviceGray soft mask.
func FromImage(src image.Image) *semantic.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Convert to NRGBA (non-premultiplied alpha) to get raw color values
	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	gray := isGray(src)
	channels := 3
	if gray {
		channels = 1
	}
	pixels := make([]byte, 0, w*h*channels)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false

	for i := 0; i < w*h; i++ {
		offset := i * 4
		if gray {
			pixels = append(pixels, nrgba.Pix[offset])
		} else {
			pixels = append(pixels, nrgba.Pix[offset], nrgba.Pix[offset+1], nrgba.Pix[offset+2])
		}

		a := nrgba.Pix[offset+3]
		alpha = append(alpha, a)
		if a < 255 {
			hasAlpha = true
		}
	}

	cs := "DeviceRGB"
	if gray {
		cs = "DeviceGray"
	}
	img := &semantic.Image{
		Width:            w,
		Height:           h,
		ColorSpace:       semantic.DeviceColorSpace{Name: cs},
		BitsPerComponent: 8,
		Data:             pixels,
	}

	if hasAlpha {
		img.SMask = &semantic.Image{
			Width:            w,
			Height:           h,
			ColorSpace:       semantic.DeviceColorSpace{Name: "DeviceGray"},
			BitsPerComponent: 8,
			Data:             alpha,
		}
	}

	return img
}

func isGray(src image.Image) bool {
	switch src.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}
