package dataset

import (
	"errors"
	"fmt"

	"github.com/cyclopcam/cocoyolo/pkg/bbox"
	"github.com/cyclopcam/cocoyolo/pkg/coco"
)

// Package dataset turns a COCO record store into a stream of YOLOv3 training samples.

var ErrUnknownCategory = errors.New("Unknown category")

// CategoryMap maps external category IDs onto dense labels [0, n), in the order
// that the categories were defined. It is immutable after construction.
type CategoryMap struct {
	ids    []int64
	labels map[int64]int
}

func NewCategoryMap(ids []int64) (*CategoryMap, error) {
	m := &CategoryMap{
		ids:    append([]int64{}, ids...),
		labels: make(map[int64]int, len(ids)),
	}
	for i, id := range ids {
		if _, ok := m.labels[id]; ok {
			return nil, fmt.Errorf("Duplicate category %v", id)
		}
		m.labels[id] = i
	}
	return m, nil
}

// LoadCategoryMap builds the category map of a record store
func LoadCategoryMap(store coco.Store) (*CategoryMap, error) {
	ids, err := coco.CategoryIDs(store)
	if err != nil {
		return nil, err
	}
	return NewCategoryMap(ids)
}

// Label returns the dense label of a category
func (m *CategoryMap) Label(categoryID int64) (int, error) {
	label, ok := m.labels[categoryID]
	if !ok {
		return 0, fmt.Errorf("%w %v", ErrUnknownCategory, categoryID)
	}
	return label, nil
}

// CategoryID is the inverse of Label
func (m *CategoryMap) CategoryID(label int) int64 {
	return m.ids[label]
}

func (m *CategoryMap) Len() int {
	return len(m.ids)
}

// Annotations are the parsed ground truth of one image.
// Boxes and Labels are parallel. Ignored holds crowd regions.
// The containers are never nil, even when empty.
type Annotations struct {
	Boxes   bbox.Boxes
	Labels  []int
	Ignored bbox.Boxes
}

// ParseAnnotations converts raw records into boxes and labels.
// Records that are flagged as ignored, or are degenerate, are skipped.
// Crowd records become ignored regions.
func ParseAnnotations(records []coco.Annotation, cats *CategoryMap) (*Annotations, error) {
	ann := &Annotations{
		Boxes:   bbox.NewBoxes(),
		Labels:  []int{},
		Ignored: bbox.NewBoxes(),
	}
	for _, r := range records {
		if r.Ignore {
			continue
		}
		x, y, w, h := r.BBox[0], r.BBox[1], r.BBox[2], r.BBox[3]
		if r.Area <= 0 || w < 1 || h < 1 {
			continue
		}
		box := bbox.FromXYWH(x, y, w, h)
		if r.IsCrowd {
			ann.Ignored.Append(box)
			continue
		}
		label, err := cats.Label(r.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("Annotation %v: %w", r.ID, err)
		}
		ann.Boxes.Append(box)
		ann.Labels = append(ann.Labels, label)
	}
	return ann, nil
}

// Labelled returns the boxes with the label packed into a 5th attribute,
// so that labels follow their boxes through transforms that drop boxes.
func (a *Annotations) Labelled() bbox.Boxes {
	out := bbox.Boxes{Attrs: 5, Data: make([]float32, 0, a.Boxes.Len()*5)}
	for i := 0; i < a.Boxes.Len(); i++ {
		out.Data = append(out.Data, a.Boxes.Row(i)[:4]...)
		out.Data = append(out.Data, float32(a.Labels[i]))
	}
	return out
}

// SplitLabelled is the inverse of Annotations.Labelled
func SplitLabelled(b bbox.Boxes) (bbox.Boxes, []int) {
	boxes := bbox.NewBoxes()
	labels := make([]int, 0, b.Len())
	for i := 0; i < b.Len(); i++ {
		r := b.Row(i)
		boxes.Data = append(boxes.Data, r[:4]...)
		labels = append(labels, int(r[4]))
	}
	return boxes, labels
}
