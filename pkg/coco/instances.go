package coco

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/cyclopcam/cocoyolo/pkg/storage"
	"github.com/goccy/go-json"
)

// Instances is an in-memory Store, typically loaded from an instances_<subset>.json file
type Instances struct {
	lock        sync.RWMutex
	images      map[int64]*Image
	annotations map[int64][]Annotation // key is image ID
	categories  []Category
}

// Flag is a boolean that COCO files write as 0 or 1
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "0", "false", "null":
		*f = false
	case "1", "true":
		*f = true
	default:
		return fmt.Errorf("Invalid flag value %v", string(b))
	}
	return nil
}

// The parts of the COCO instances file that we care about.
// Segmentation masks are skipped by the decoder.
type instancesFile struct {
	Images      []Image `json:"images"`
	Annotations []struct {
		ID         int64      `json:"id"`
		ImageID    int64      `json:"image_id"`
		CategoryID int64      `json:"category_id"`
		BBox       [4]float32 `json:"bbox"`
		Area       float32    `json:"area"`
		IsCrowd    Flag       `json:"iscrowd"`
		Ignore     Flag       `json:"ignore"`
	} `json:"annotations"`
	Categories []Category `json:"categories"`
}

func NewInstances() *Instances {
	return &Instances{
		images:      map[int64]*Image{},
		annotations: map[int64][]Annotation{},
	}
}

// LoadInstances decodes a COCO instances JSON document
func LoadInstances(r io.Reader) (*Instances, error) {
	raw := instancesFile{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	inst := NewInstances()
	for i := range raw.Images {
		inst.AddImage(raw.Images[i])
	}
	for _, c := range raw.Categories {
		inst.AddCategory(c)
	}
	for _, a := range raw.Annotations {
		inst.AddAnnotation(Annotation{
			ID:         a.ID,
			ImageID:    a.ImageID,
			CategoryID: a.CategoryID,
			BBox:       a.BBox,
			Area:       a.Area,
			IsCrowd:    bool(a.IsCrowd),
			Ignore:     bool(a.Ignore),
		})
	}
	return inst, nil
}

// LoadInstancesFile reads the instances file of a subset (eg "train" or "val") from a dataset root
func LoadInstancesFile(s storage.Storage, subset string) (*Instances, error) {
	name := InstancesFile(subset)
	f, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	inst, err := LoadInstances(f.Reader)
	if err != nil {
		return nil, fmt.Errorf("Failed to decode %v: %w", name, err)
	}
	return inst, nil
}

func (s *Instances) AddImage(img Image) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.images[img.ID] = &img
}

func (s *Instances) AddCategory(c Category) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.categories = append(s.categories, c)
}

func (s *Instances) AddAnnotation(a Annotation) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.annotations[a.ImageID] = append(s.annotations[a.ImageID], a)
}

// SetAnnotations replaces all annotations of an image
func (s *Instances) SetAnnotations(imageID int64, anns []Annotation) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(anns) == 0 {
		delete(s.annotations, imageID)
	} else {
		s.annotations[imageID] = slices.Clone(anns)
	}
}

func (s *Instances) ImageIDs() ([]int64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	ids := make([]int64, 0, len(s.annotations))
	for id := range s.annotations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Instances) Image(id int64) (*Image, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	img := s.images[id]
	if img == nil {
		return nil, errImageNotFound(id)
	}
	c := *img
	return &c, nil
}

func (s *Instances) Annotations(imageID int64) ([]Annotation, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return slices.Clone(s.annotations[imageID]), nil
}

func (s *Instances) Categories() ([]Category, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return slices.Clone(s.categories), nil
}

// All images, in ascending ID order (including images without annotations)
func (s *Instances) AllImages() []Image {
	s.lock.RLock()
	defer s.lock.RUnlock()
	all := make([]Image, 0, len(s.images))
	for _, img := range s.images {
		all = append(all, *img)
	}
	slices.SortFunc(all, func(a, b Image) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return all
}

// All annotations, ordered by image ID
func (s *Instances) AllAnnotations() []Annotation {
	ids, _ := s.ImageIDs()
	s.lock.RLock()
	defer s.lock.RUnlock()
	all := []Annotation{}
	for _, id := range ids {
		all = append(all, s.annotations[id]...)
	}
	return all
}
