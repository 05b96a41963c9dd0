package transform

import (
	"fmt"
	"math/rand/v2"

	"github.com/bmharper/cimg/v2"
	"github.com/chewxy/math32"
	"github.com/cyclopcam/cocoyolo/pkg/bbox"
	"github.com/cyclopcam/cocoyolo/pkg/nn"
)

// RandomFlip mirrors the image and boxes horizontally
type RandomFlip struct {
	Probability float32
}

func (r *RandomFlip) Apply(f Frame, rng *rand.Rand) (Frame, error) {
	if rng.Float32() >= r.Probability {
		return f, nil
	}
	return Flip(f), nil
}

// Flip mirrors a frame horizontally
func Flip(f Frame) Frame {
	out := f
	out.Image = flipImage(f.Image)
	w := float32(f.Width())
	if f.Boxes.Len() != 0 {
		out.Boxes = bbox.FlipHorizontal(f.Boxes, w)
	}
	if f.Ignored.Len() != 0 {
		out.Ignored = bbox.FlipHorizontal(f.Ignored, w)
	}
	return out
}

func flipImage(src *cimg.Image) *cimg.Image {
	nc := src.NChan()
	dst := cimg.NewImage(src.Width, src.Height, src.Format)
	for y := 0; y < src.Height; y++ {
		srcLine := src.Pixels[y*src.Stride : y*src.Stride+src.Width*nc]
		dstLine := dst.Pixels[y*dst.Stride : y*dst.Stride+dst.Width*nc]
		for x := 0; x < src.Width; x++ {
			copy(dstLine[(src.Width-1-x)*nc:(src.Width-x)*nc], srcLine[x*nc:(x+1)*nc])
		}
	}
	return dst
}

// RandomCrop picks a random sub-rectangle of the image, subject to keeping at least
// one object whose center lies inside it. Boxes whose center falls outside the crop
// are removed. If no acceptable crop is found, the frame is left untouched.
type RandomCrop struct {
	Probability float32 // Chance of attempting a crop at all
	MinScale    float32 // Minimum crop side, as a fraction of the image side
	MaxScale    float32
	MinAspect   float32 // Aspect ratio range of the crop, relative to the image
	MaxAspect   float32
	MaxTrials   int
}

func NewRandomCrop() *RandomCrop {
	return &RandomCrop{
		Probability: 0.5,
		MinScale:    0.3,
		MaxScale:    1,
		MinAspect:   0.5,
		MaxAspect:   2,
		MaxTrials:   50,
	}
}

func (r *RandomCrop) Apply(f Frame, rng *rand.Rand) (Frame, error) {
	if f.Boxes.Len() == 0 || rng.Float32() >= r.Probability {
		return f, nil
	}
	w := f.Width()
	h := f.Height()
	for trial := 0; trial < r.MaxTrials; trial++ {
		scale := r.MinScale + rng.Float32()*(r.MaxScale-r.MinScale)
		aspect := math32.Exp(math32.Log(r.MinAspect) + rng.Float32()*(math32.Log(r.MaxAspect)-math32.Log(r.MinAspect)))
		cw := min(int(float32(w)*scale*math32.Sqrt(aspect)), w)
		ch := min(int(float32(h)*scale/math32.Sqrt(aspect)), h)
		if cw < 1 || ch < 1 {
			continue
		}
		rect := nn.MakeRect(rng.IntN(w-cw+1), rng.IntN(h-ch+1), cw, ch)
		out, ok, err := CropFrame(f, rect)
		if err != nil {
			return f, err
		}
		if ok {
			return out, nil
		}
	}
	return f, nil
}

// CropFrame crops the image to rect, after clipping rect to the image.
// ok is false if no box would survive the crop.
func CropFrame(f Frame, rect nn.Rect) (out Frame, ok bool, err error) {
	rect = rect.Intersection(nn.MakeRect(0, 0, f.Width(), f.Height()))
	if rect.Empty() {
		return f, false, nil
	}
	boxes, err := bbox.Crop(f.Boxes, rect.CropRegion(), false)
	if err != nil || boxes.Len() == 0 {
		return f, false, err
	}
	ignored := f.Ignored
	if ignored.Len() != 0 {
		if ignored, err = bbox.Crop(ignored, rect.CropRegion(), true); err != nil {
			return f, false, err
		}
	}
	img := cimg.NewImage(rect.Width, rect.Height, cimg.PixelFormatRGB)
	if err := img.CopyImageRect(f.Image, rect.X, rect.Y, rect.X2(), rect.Y2(), 0, 0); err != nil {
		return f, false, fmt.Errorf("Crop: %w", err)
	}
	return Frame{Image: img, Boxes: boxes, Ignored: ignored}, true, nil
}
