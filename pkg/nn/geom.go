package nn

import (
	"github.com/cyclopcam/cocoyolo/pkg/bbox"
)

// Rect is an integer pixel region of an image
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func MakeRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

func (r Rect) X2() int {
	return r.X + r.Width
}

func (r Rect) Y2() int {
	return r.Y + r.Height
}

// Empty is true if the rect has no pixels
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersection returns the overlap of two rects, which is Empty if they don't overlap
func (r Rect) Intersection(b Rect) Rect {
	x1 := max(r.X, b.X)
	y1 := max(r.Y, b.Y)
	x2 := min(r.X2(), b.X2())
	y2 := min(r.Y2(), b.Y2())
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

// CropRegion returns the region in the form expected by bbox.Crop
func (r Rect) CropRegion() bbox.CropRegion {
	return bbox.CropRegion{
		Left:   float32(r.X),
		Top:    float32(r.Y),
		Width:  float32(r.Width),
		Height: float32(r.Height),
	}
}
