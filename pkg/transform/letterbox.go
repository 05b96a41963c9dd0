package transform

import (
	"fmt"
	"math/rand/v2"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/cocoyolo/pkg/bbox"
)

// Letterbox scales an image to fit inside Width x Height, preserving aspect ratio.
// The image is placed at the top left, and the right or bottom edge is padded with black.
type Letterbox struct {
	Width  int
	Height int
}

func NewLetterbox(width, height int) *Letterbox {
	return &Letterbox{
		Width:  width,
		Height: height,
	}
}

// Scale returns the resize factor and the size of the image content inside the letterbox
func (l *Letterbox) Scale(width, height int) (scale float32, scaledWidth, scaledHeight int) {
	scaleX := float32(l.Width) / float32(width)
	scaleY := float32(l.Height) / float32(height)
	scale = min(scaleX, scaleY)
	scaledWidth = min(max(int(float32(width)*scale+0.5), 1), l.Width)
	scaledHeight = min(max(int(float32(height)*scale+0.5), 1), l.Height)
	return
}

func (l *Letterbox) Apply(f Frame, rng *rand.Rand) (Frame, error) {
	if f.Width() <= 0 || f.Height() <= 0 {
		return f, fmt.Errorf("Cannot letterbox an empty image")
	}
	scale, sw, sh := l.Scale(f.Width(), f.Height())

	resized := f.Image
	if sw != f.Width() || sh != f.Height() {
		params := cimg.ResizeParams{CheapSRGBFilter: true}
		if scale < 1 {
			params.Filter = cimg.ResizeFilterBox
		} else {
			// Triangle is bilinear on upsampling
			params.Filter = cimg.ResizeFilterTriangle
		}
		resized = cimg.ResizeNew(f.Image, sw, sh, &params)
	}

	out := f
	out.Image = cimg.NewImage(l.Width, l.Height, cimg.PixelFormatRGB)
	if err := out.Image.CopyImageRect(resized, 0, 0, sw, sh, 0, 0); err != nil {
		return f, fmt.Errorf("Letterbox: %w", err)
	}

	inSize := []float32{float32(f.Width()), float32(f.Height())}
	outSize := []float32{float32(sw), float32(sh)}
	bounds := bbox.CropRegion{Width: float32(l.Width), Height: float32(l.Height)}
	var err error
	if out.Boxes, err = resizeAndClip(f.Boxes, inSize, outSize, bounds); err != nil {
		return f, err
	}
	if out.Ignored, err = resizeAndClip(f.Ignored, inSize, outSize, bounds); err != nil {
		return f, err
	}
	return out, nil
}

func resizeAndClip(b bbox.Boxes, inSize, outSize []float32, bounds bbox.CropRegion) (bbox.Boxes, error) {
	if b.Len() == 0 {
		return b, nil
	}
	r, err := bbox.Resize(b, inSize, outSize)
	if err != nil {
		return bbox.Boxes{}, err
	}
	return bbox.Crop(r, bounds, true)
}
