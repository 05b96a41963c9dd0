package bbox

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// Package bbox holds the float geometry that moves ground truth boxes
// through image transforms. Boxes are (x1, y1, x2, y2) in pixels.

var ErrAttrs = errors.New("Bounding boxes must have at least 4 attributes")
var ErrSizeTuple = errors.New("Size must have exactly 2 components (width, height)")

// Box is a single axis aligned box
type Box struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// FromXYWH converts a COCO style (x, y, width, height) box.
func FromXYWH(x, y, w, h float32) Box {
	return Box{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

func (b Box) Width() float32 {
	return b.X2 - b.X1
}

func (b Box) Height() float32 {
	return b.Y2 - b.Y1
}

func (b Box) Area() float32 {
	return b.Width() * b.Height()
}

func (b Box) Center() (float32, float32) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Returns true if x1 < x2 and y1 < y2
func (b Box) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Boxes is a dense N x Attrs matrix. The first 4 attributes of each row are the
// coordinates. Any further attributes are carried through transformations untouched.
type Boxes struct {
	Attrs int
	Data  []float32
}

// NewBoxes returns an empty set of boxes with 4 attributes per box
func NewBoxes() Boxes {
	return Boxes{Attrs: 4, Data: []float32{}}
}

// MakeBoxes packs a list of boxes into a 4 attribute matrix
func MakeBoxes(list ...Box) Boxes {
	b := Boxes{Attrs: 4, Data: make([]float32, 0, len(list)*4)}
	for _, x := range list {
		b.Append(x)
	}
	return b
}

// Len returns the number of boxes
func (b Boxes) Len() int {
	if b.Attrs == 0 {
		return 0
	}
	return len(b.Data) / b.Attrs
}

func (b Boxes) Row(i int) []float32 {
	return b.Data[i*b.Attrs : (i+1)*b.Attrs]
}

func (b Boxes) At(i int) Box {
	r := b.Row(i)
	return Box{X1: r[0], Y1: r[1], X2: r[2], Y2: r[3]}
}

// Append adds a box. Any extra attributes are zero.
func (b *Boxes) Append(x Box) {
	if b.Attrs == 0 {
		b.Attrs = 4
	}
	b.Data = append(b.Data, x.X1, x.Y1, x.X2, x.Y2)
	for i := 4; i < b.Attrs; i++ {
		b.Data = append(b.Data, 0)
	}
}

// List unpacks the coordinates into a slice of Box
func (b Boxes) List() []Box {
	list := make([]Box, b.Len())
	for i := range list {
		list[i] = b.At(i)
	}
	return list
}

func (b Boxes) Clone() Boxes {
	return Boxes{Attrs: b.Attrs, Data: append([]float32{}, b.Data...)}
}

func (b Boxes) check() error {
	if b.Attrs < 4 {
		return fmt.Errorf("%w (got %v)", ErrAttrs, b.Attrs)
	}
	if len(b.Data)%b.Attrs != 0 {
		return fmt.Errorf("Bounding box data length %v is not a multiple of %v", len(b.Data), b.Attrs)
	}
	return nil
}

// Malformed boxes are a programming error, so functions that don't return an error panic instead
func (b Boxes) mustCheck() {
	if b.Len() == 0 && len(b.Data) == 0 {
		return
	}
	if err := b.check(); err != nil {
		panic(err)
	}
}

// IOU returns the N x M matrix (row major) of intersection over union between
// every pair of boxes in a and b.
func IOU(a, b Boxes) ([]float32, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	if err := b.check(); err != nil {
		return nil, err
	}
	n := a.Len()
	m := b.Len()
	out := make([]float32, n*m)
	for i := 0; i < n; i++ {
		ra := a.Row(i)
		areaA := (ra[2] - ra[0]) * (ra[3] - ra[1])
		for j := 0; j < m; j++ {
			rb := b.Row(j)
			tlx := max(ra[0], rb[0])
			tly := max(ra[1], rb[1])
			brx := min(ra[2], rb[2])
			bry := min(ra[3], rb[3])
			var inter float32
			if tlx < brx && tly < bry {
				inter = (brx - tlx) * (bry - tly)
			}
			areaB := (rb[2] - rb[0]) * (rb[3] - rb[1])
			out[i*m+j] = inter / (areaA + areaB - inter)
		}
	}
	return out, nil
}

// CropRegion is (Left, Top, Width, Height). A Width or Height of zero or less
// means that side is unbounded.
type CropRegion struct {
	Left   float32
	Top    float32
	Width  float32
	Height float32
}

func (c CropRegion) bounds() (left, top, right, bottom float32) {
	left = c.Left
	top = c.Top
	right = math32.Inf(1)
	bottom = math32.Inf(1)
	if c.Width > 0 {
		right = left + c.Width
	}
	if c.Height > 0 {
		bottom = top + c.Height
	}
	return
}

// Crop clips boxes to the region, and returns them in region-local coordinates.
// If allowOutsideCenter is false, boxes whose center is outside the region are removed.
// Boxes that collapse to zero size after clipping are always removed.
func Crop(b Boxes, region CropRegion, allowOutsideCenter bool) (Boxes, error) {
	if err := b.check(); err != nil {
		return Boxes{}, err
	}
	left, top, right, bottom := region.bounds()
	out := Boxes{Attrs: b.Attrs, Data: make([]float32, 0, len(b.Data))}
	for i := 0; i < b.Len(); i++ {
		r := b.Row(i)
		if !allowOutsideCenter {
			cx := (r[0] + r[2]) / 2
			cy := (r[1] + r[3]) / 2
			if !(left <= cx && cx < right && top <= cy && cy < bottom) {
				continue
			}
		}
		x1 := max(r[0], left) - left
		y1 := max(r[1], top) - top
		x2 := min(r[2], right) - left
		y2 := min(r[3], bottom) - top
		if !(x1 < x2 && y1 < y2) {
			continue
		}
		out.Data = append(out.Data, x1, y1, x2, y2)
		out.Data = append(out.Data, r[4:]...)
	}
	return out, nil
}

// Resize scales boxes according to an image resize from inSize to outSize.
// Sizes are (width, height).
func Resize(b Boxes, inSize, outSize []float32) (Boxes, error) {
	if len(inSize) != 2 {
		return Boxes{}, fmt.Errorf("in_size: %w (got %v)", ErrSizeTuple, len(inSize))
	}
	if len(outSize) != 2 {
		return Boxes{}, fmt.Errorf("out_size: %w (got %v)", ErrSizeTuple, len(outSize))
	}
	if inSize[0] <= 0 || inSize[1] <= 0 {
		return Boxes{}, fmt.Errorf("Invalid input size %v x %v", inSize[0], inSize[1])
	}
	if err := b.check(); err != nil {
		return Boxes{}, err
	}
	sx := outSize[0] / inSize[0]
	sy := outSize[1] / inSize[1]
	out := b.Clone()
	for i := 0; i < out.Len(); i++ {
		r := out.Row(i)
		r[0] *= sx
		r[1] *= sy
		r[2] *= sx
		r[3] *= sy
	}
	return out, nil
}

// FlipHorizontal mirrors boxes around the vertical center line of an image that is 'width' pixels wide.
// Applying it twice with the same width restores the original boxes, exactly for integer
// coordinates and up to float32 rounding otherwise.
func FlipHorizontal(b Boxes, width float32) Boxes {
	b.mustCheck()
	out := b.Clone()
	for i := 0; i < out.Len(); i++ {
		r := out.Row(i)
		x1 := r[0]
		r[0] = width - r[2] - 1
		r[2] = width - x1 - 1
	}
	return out
}

// Translate offsets both corners of every box
func Translate(b Boxes, dx, dy float32) Boxes {
	b.mustCheck()
	out := b.Clone()
	for i := 0; i < out.Len(); i++ {
		r := out.Row(i)
		r[0] += dx
		r[1] += dy
		r[2] += dx
		r[3] += dy
	}
	return out
}
