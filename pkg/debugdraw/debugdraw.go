package debugdraw

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/cocoyolo/pkg/dataset"
	"github.com/cyclopcam/cocoyolo/pkg/nn"
	"github.com/cyclopcam/cocoyolo/pkg/yolo"
	"github.com/fogleman/gg"
	"github.com/goccy/go-json"
)

// Package debugdraw renders training samples, so that a human can check that
// boxes, crowd regions and anchor assignments line up with the pixels.

// Colors of the detection scales, coarsest first
var scaleColors = [yolo.NumScales][3]float64{
	{1, 0.3, 0.3},
	{1, 1, 0.2},
	{0.3, 0.6, 1},
}

// Positive is an anchor slot that was assigned a ground truth box
type Positive struct {
	Scale  int
	Row    int
	Col    int
	Anchor int
	Class  int
	X      float32 // Decoded box center, in pixels
	Y      float32
}

// Positives lists the assigned slots of all grids
func Positives(grids [yolo.NumScales]*yolo.Grid) []Positive {
	all := []Positive{}
	for s, g := range grids {
		stride := float32(g.Stride)
		for row := 0; row < g.Rows; row++ {
			for col := 0; col < g.Cols; col++ {
				for a := 0; a < g.Anchors; a++ {
					v := g.Slot(row, col, a)
					if v[yolo.ChanObjectness] == 0 {
						continue
					}
					p := Positive{
						Scale:  s,
						Row:    row,
						Col:    col,
						Anchor: a,
						Class:  -1,
						X:      (float32(col) + v[yolo.ChanX]) * stride,
						Y:      (float32(row) + v[yolo.ChanY]) * stride,
					}
					for c := 0; c < g.Classes; c++ {
						if v[yolo.ChanClass0+c] != 0 {
							p.Class = c
							break
						}
					}
					all = append(all, p)
				}
			}
		}
	}
	return all
}

// DrawSample renders the image of a sample with its boxes, crowd regions, and
// the centers of the anchor slots that the boxes were assigned to.
func DrawSample(s *dataset.Sample, classes []string) (image.Image, error) {
	src, err := s.Image.ToImage()
	if err != nil {
		return nil, err
	}
	dc := gg.NewContextForImage(src)

	dc.SetLineWidth(1)
	dc.SetDash(4, 3)
	dc.SetRGB(1, 0, 1)
	for _, b := range s.Ignored.List() {
		dc.DrawRectangle(float64(b.X1), float64(b.Y1), float64(b.Width()), float64(b.Height()))
		dc.Stroke()
	}
	dc.SetDash()

	dc.SetLineWidth(2)
	dc.SetRGB(0, 1, 0)
	for i, b := range s.Boxes.List() {
		dc.DrawRectangle(float64(b.X1), float64(b.Y1), float64(b.Width()), float64(b.Height()))
		dc.Stroke()
		dc.DrawString(className(classes, s.Labels[i]), float64(b.X1)+2, float64(b.Y1)+12)
	}

	for _, p := range Positives(s.Grids) {
		c := scaleColors[p.Scale]
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawCircle(float64(p.X), float64(p.Y), 3)
		dc.Fill()
	}
	return dc.Image(), nil
}

func className(classes []string, label int) string {
	if label >= 0 && label < len(classes) {
		return classes[label]
	}
	return fmt.Sprintf("%v", label)
}

// Labels describes the ground truth of a sample, in the form written next to debug images
func Labels(s *dataset.Sample) *nn.ImageLabels {
	labels := &nn.ImageLabels{
		ImageID: s.ImageID,
		Path:    s.ImagePath,
		Width:   s.Image.Width,
		Height:  s.Image.Height,
		Objects: []nn.ObjectLabel{},
		Ignored: s.Ignored.List(),
	}
	for i, b := range s.Boxes.List() {
		labels.Objects = append(labels.Objects, nn.ObjectLabel{Class: s.Labels[i], Box: b})
	}
	return labels
}

// WriteSample writes <dir>/<imageID>.png and <dir>/<imageID>.json.
// Returns the path of the PNG file.
func WriteSample(dir string, s *dataset.Sample, classes []string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	base := filepath.Join(dir, fmt.Sprintf("%012d", s.ImageID))
	img, err := DrawSample(s, classes)
	if err != nil {
		return "", err
	}
	if err := gg.SavePNG(base+".png", img); err != nil {
		return "", err
	}
	j, err := json.MarshalIndent(Labels(s), "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(base+".json", j, 0644); err != nil {
		return "", err
	}
	return base + ".png", nil
}
