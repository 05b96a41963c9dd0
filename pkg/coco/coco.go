package coco

import (
	"errors"
	"fmt"
)

// Package coco provides read access to COCO style instance annotations.
// The annotations can come straight from an instances_<subset>.json file,
// or from a database that the JSON file was imported into.

var ErrNotFound = errors.New("Not found")

// Image is the metadata of one image in the dataset
type Image struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Annotation is one raw object annotation.
// BBox is (x, y, width, height) in pixels.
type Annotation struct {
	ID         int64      `json:"id"`
	ImageID    int64      `json:"image_id"`
	CategoryID int64      `json:"category_id"`
	BBox       [4]float32 `json:"bbox"`
	Area       float32    `json:"area"`
	IsCrowd    bool       `json:"iscrowd"`
	Ignore     bool       `json:"ignore"`
}

type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// Store is a read-only source of annotations, queried by image
type Store interface {
	// Returns the IDs of all images that have at least one annotation, in ascending order
	ImageIDs() ([]int64, error)

	// Returns the metadata of an image, or ErrNotFound
	Image(id int64) (*Image, error)

	// Returns all annotations of an image. An image without annotations returns an empty list.
	Annotations(imageID int64) ([]Annotation, error)

	// Returns the full category list, in the order in which it was defined
	Categories() ([]Category, error)
}

// CategoryIDs returns the category identifiers of the store, in definition order
func CategoryIDs(s Store) ([]int64, error) {
	cats, err := s.Categories()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	return ids, nil
}

func errImageNotFound(id int64) error {
	return fmt.Errorf("Image %v: %w", id, ErrNotFound)
}

// Standard COCO 2017 layout, relative to the dataset root
func InstancesFile(subset string) string {
	return fmt.Sprintf("annotations/instances_%v2017.json", subset)
}

// Standard COCO 2017 layout, relative to the dataset root
func ImageDir(subset string) string {
	return fmt.Sprintf("images/%v2017", subset)
}
