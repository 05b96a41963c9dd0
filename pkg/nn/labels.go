package nn

import "github.com/cyclopcam/cocoyolo/pkg/bbox"

// ImageLabels are the ground truth objects of one training image, after transformation.
// This is what we write out next to debug images.
type ImageLabels struct {
	ImageID int64         `json:"imageID"`
	Path    string        `json:"path"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Objects []ObjectLabel `json:"objects"`
	Ignored []bbox.Box    `json:"ignored,omitempty"` // Crowd regions
}

// ObjectLabel is a single ground truth object
type ObjectLabel struct {
	Class int      `json:"class"`
	Box   bbox.Box `json:"box"`
}
