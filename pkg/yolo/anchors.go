package yolo

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Package yolo encodes ground truth boxes into the dense per-scale grids that
// a YOLOv3 loss function consumes.

const NumScales = 3
const AnchorsPerScale = 3

// Strides of the detection scales, coarsest first
var Strides = [NumScales]int{32, 16, 8}

// Anchor is a reference box size, in pixels at the network input resolution
type Anchor struct {
	W float32 `json:"w"`
	H float32 `json:"h"`
}

// AnchorSet holds the anchors of each detection scale. Scale 0 is the coarsest grid,
// and gets the largest anchors.
type AnchorSet [NumScales][AnchorsPerScale]Anchor

// MakeAnchorSet distributes 9 anchors, given smallest first (the darknet convention),
// among the detection scales.
func MakeAnchorSet(anchors [][2]float32) (AnchorSet, error) {
	set := AnchorSet{}
	if len(anchors) != NumScales*AnchorsPerScale {
		return set, fmt.Errorf("Expected %v anchors, but got %v", NumScales*AnchorsPerScale, len(anchors))
	}
	for i, a := range anchors {
		if a[0] <= 0 || a[1] <= 0 {
			return set, fmt.Errorf("Anchor %v has invalid size %v x %v", i, a[0], a[1])
		}
		scale := NumScales - 1 - i/AnchorsPerScale
		set[scale][i%AnchorsPerScale] = Anchor{W: a[0], H: a[1]}
	}
	return set, nil
}

// Flat returns the anchors in scale major order (scale 0 first)
func (s *AnchorSet) Flat() []Anchor {
	flat := make([]Anchor, 0, NumScales*AnchorsPerScale)
	for scale := 0; scale < NumScales; scale++ {
		flat = append(flat, s[scale][:]...)
	}
	return flat
}

// SizeIOU is the IoU of two boxes that share the same center
func SizeIOU(w1, h1, w2, h2 float32) float32 {
	inter := math32.Min(w1, w2) * math32.Min(h1, h2)
	return inter / (w1*h1 + w2*h2 - inter)
}

// BestAnchor returns the scale and slot of the anchor with the highest size IoU.
// Ties go to the anchor that comes first in the list given to MakeAnchorSet (smallest first).
func (s *AnchorSet) BestAnchor(w, h float32) (scale, slot int, iou float32) {
	iou = -1
	for i := 0; i < NumScales*AnchorsPerScale; i++ {
		sc := NumScales - 1 - i/AnchorsPerScale
		a := i % AnchorsPerScale
		v := SizeIOU(w, h, s[sc][a].W, s[sc][a].H)
		if v > iou {
			scale, slot, iou = sc, a, v
		}
	}
	return
}
