package transform

import (
	"math/rand/v2"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/cocoyolo/pkg/bbox"
)

// Package transform applies geometric operations jointly to an image and its boxes,
// so that the boxes keep describing the same pixels.

// Frame is an image with its ground truth.
// Boxes may carry extra attributes (eg the class label), which survive every transform.
type Frame struct {
	Image   *cimg.Image
	Boxes   bbox.Boxes
	Ignored bbox.Boxes // Crowd regions
}

func (f Frame) Width() int {
	return f.Image.Width
}

func (f Frame) Height() int {
	return f.Image.Height
}

// Transform is a joint image + box operation. Random transforms draw from rng,
// so that the result is reproducible for a given seed.
type Transform interface {
	Apply(f Frame, rng *rand.Rand) (Frame, error)
}

// Chain applies transforms in order
type Chain []Transform

func (c Chain) Apply(f Frame, rng *rand.Rand) (Frame, error) {
	var err error
	for _, t := range c {
		f, err = t.Apply(f, rng)
		if err != nil {
			return f, err
		}
	}
	return f, nil
}

// NewValTransform returns the evaluation pipeline: letterbox only
func NewValTransform(width, height int) Transform {
	return Chain{NewLetterbox(width, height)}
}

// NewTrainTransform returns the training pipeline: random flip, random crop, then letterbox
func NewTrainTransform(width, height int) Transform {
	return Chain{
		&RandomFlip{Probability: 0.5},
		NewRandomCrop(),
		NewLetterbox(width, height),
	}
}
