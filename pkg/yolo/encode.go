package yolo

import (
	"fmt"
	"math"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"
	"github.com/cyclopcam/cocoyolo/pkg/bbox"
)

// Largest value below 1, so that cell offsets stay inside [0,1)
var belowOne = math.Nextafter32(1, 0)

// Encoder assigns ground truth boxes to anchors and grid cells
type Encoder struct {
	Anchors    AnchorSet
	NumClasses int
}

func NewEncoder(anchors AnchorSet, numClasses int) *Encoder {
	return &Encoder{
		Anchors:    anchors,
		NumClasses: numClasses,
	}
}

// Encode produces one Grid per detection scale, for an image of the given size.
// boxes and labels are parallel. ignored holds crowd regions, which never become positives,
// but are marked in Grid.Ignore.
// If two boxes land in the same slot, the later box wins.
func (e *Encoder) Encode(boxes bbox.Boxes, labels []int, ignored bbox.Boxes, width, height int) ([NumScales]*Grid, error) {
	grids := [NumScales]*Grid{}
	if boxes.Len() != len(labels) {
		return grids, fmt.Errorf("Have %v boxes but %v labels", boxes.Len(), len(labels))
	}
	if width <= 0 || height <= 0 || width%Strides[0] != 0 || height%Strides[0] != 0 {
		return grids, fmt.Errorf("Image size %v x %v must be a positive multiple of %v", width, height, Strides[0])
	}
	for s := 0; s < NumScales; s++ {
		grids[s] = NewGrid(height/Strides[s], width/Strides[s], AnchorsPerScale, e.NumClasses, Strides[s])
	}

	for i := 0; i < boxes.Len(); i++ {
		label := labels[i]
		if label < 0 || label >= e.NumClasses {
			return grids, fmt.Errorf("Label %v of box %v is outside of [0, %v)", label, i, e.NumClasses)
		}
		box := boxes.At(i)
		w := box.Width()
		h := box.Height()
		if w <= 0 || h <= 0 {
			continue
		}
		cx, cy := box.Center()
		scale, slot, _ := e.Anchors.BestAnchor(w, h)
		anchor := e.Anchors[scale][slot]
		g := grids[scale]
		stride := float32(g.Stride)

		gx := cx / stride
		gy := cy / stride
		col := min(max(int(math32.Floor(gx)), 0), g.Cols-1)
		row := min(max(int(math32.Floor(gy)), 0), g.Rows-1)

		v := g.Slot(row, col, slot)
		if v[ChanObjectness] != 0 {
			g.Collisions++
			clear(v)
		}
		v[ChanX] = math32.Min(math32.Max(gx-float32(col), 0), belowOne)
		v[ChanY] = math32.Min(math32.Max(gy-float32(row), 0), belowOne)
		v[ChanW] = math32.Log(w / anchor.W)
		v[ChanH] = math32.Log(h / anchor.H)
		v[ChanObjectness] = 1
		v[ChanClass0+label] = 1
	}

	if ignored.Len() != 0 {
		markIgnored(grids, ignored)
	}

	return grids, nil
}

// Mark every cell whose center is inside one of the crowd regions
func markIgnored(grids [NumScales]*Grid, ignored bbox.Boxes) {
	fb := flatbush.NewFlatbush[float64]()
	fb.Reserve(ignored.Len())
	for i := 0; i < ignored.Len(); i++ {
		b := ignored.At(i)
		fb.Add(float64(b.X1), float64(b.Y1), float64(b.X2), float64(b.Y2))
	}
	fb.Finish()

	for _, g := range grids {
		half := float64(g.Stride) / 2
		for row := 0; row < g.Rows; row++ {
			y := float64(row*g.Stride) + half
			for col := 0; col < g.Cols; col++ {
				x := float64(col*g.Stride) + half
				if len(fb.Search(x, y, x, y)) != 0 {
					g.Ignore[row*g.Cols+col] = true
				}
			}
		}
	}
}
