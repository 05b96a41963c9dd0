package dataset

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/cocoyolo/pkg/bbox"
	"github.com/cyclopcam/cocoyolo/pkg/coco"
	"github.com/cyclopcam/cocoyolo/pkg/imagecodec"
	"github.com/cyclopcam/cocoyolo/pkg/perfstats"
	"github.com/cyclopcam/cocoyolo/pkg/transform"
	"github.com/cyclopcam/cocoyolo/pkg/yolo"
	"github.com/cyclopcam/logs"
)

// Names of the timed stages of sample production
const (
	StageDecode    = "decode"
	StageParse     = "parse"
	StageTransform = "transform"
	StageEncode    = "encode"
)

// Sample is one fully prepared training example
type Sample struct {
	ImageID   int64
	Image     *cimg.Image // Transformed RGB image
	ImagePath string      // Path of the source image, relative to the dataset root
	PadScale  [2]float32  // Always (1,1) for letterbox transforms
	OrigShape [2]float32  // (height, width) of the source image
	Grids     [yolo.NumScales]*yolo.Grid
	Boxes     bbox.Boxes // Transformed boxes, for diagnostics
	Labels    []int
	Ignored   bbox.Boxes
}

// SamplerConfig controls how samples are produced
type SamplerConfig struct {
	ImageDir  string              // Directory of the images, relative to the codec's root
	Transform transform.Transform // Applied jointly to image and boxes
	Encoder   *yolo.Encoder
	Shuffle   bool   // Visit images in a new random order each epoch
	Seed      uint64 // Drives the shuffle order and random augmentation
}

// Sampler produces the samples of an Index, one epoch at a time.
// A Sampler is not safe for concurrent calls to Epoch, but the samples of an
// epoch may be produced concurrently via Epoch.Produce.
type Sampler struct {
	Log    logs.Log
	Stats  *perfstats.Stages
	store  coco.Store
	codec  imagecodec.Codec
	index  *Index
	cats   *CategoryMap
	config SamplerConfig
	epoch  int
}

func NewSampler(log logs.Log, store coco.Store, codec imagecodec.Codec, index *Index, cats *CategoryMap, config SamplerConfig) (*Sampler, error) {
	if config.Transform == nil {
		return nil, errors.New("Sampler needs a transform")
	}
	if config.Encoder == nil {
		return nil, errors.New("Sampler needs an encoder")
	}
	if config.Encoder.NumClasses != cats.Len() {
		return nil, fmt.Errorf("Encoder has %v classes, but the dataset has %v categories", config.Encoder.NumClasses, cats.Len())
	}
	return &Sampler{
		Log:    log,
		Stats:  perfstats.NewStages(),
		store:  store,
		codec:  codec,
		index:  index,
		cats:   cats,
		config: config,
	}, nil
}

// Number of samples in one epoch
func (s *Sampler) Len() int {
	return s.index.Len()
}

// Order returns the sequence of sample indices visited during an epoch
func (s *Sampler) Order(epoch int) []int {
	n := s.index.Len()
	if !s.config.Shuffle {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}
	return rand.New(rand.NewPCG(s.config.Seed, uint64(epoch))).Perm(n)
}

// Epoch starts a new pass over the dataset. Each call advances the epoch number,
// so a shuffled sampler visits images in a new order.
func (s *Sampler) Epoch() *Epoch {
	e := &Epoch{
		sampler: s,
		number:  s.epoch,
		order:   s.Order(s.epoch),
	}
	s.epoch++
	return e
}

// Each (epoch, index) pair has its own random stream, independent of the goroutine that produces it
func (s *Sampler) sampleRNG(epoch, index int) *rand.Rand {
	return rand.New(rand.NewPCG(s.config.Seed^0x9e3779b97f4a7c15, uint64(epoch)<<32|uint64(index)))
}

// Produce builds the sample at index (a position in the Index) for an epoch.
// It is safe to call from multiple goroutines.
func (s *Sampler) Produce(epoch, index int) (*Sample, error) {
	if index < 0 || index >= s.index.Len() {
		return nil, fmt.Errorf("Sample index %v out of range [0, %v)", index, s.index.Len())
	}
	img := s.index.Images[index]
	imgPath := path.Join(s.config.ImageDir, img.FileName)

	start := time.Now()
	pixels, err := s.codec.Decode(imgPath)
	if err != nil {
		return nil, fmt.Errorf("Image %v (%v): %w", img.ID, imgPath, err)
	}
	s.Stats.Since(StageDecode, start)

	// Annotations are fetched again, so that changes to the store since the index was built are visible
	start = time.Now()
	records, err := s.store.Annotations(img.ID)
	if err != nil {
		return nil, fmt.Errorf("Image %v: %w", img.ID, err)
	}
	ann, err := ParseAnnotations(records, s.cats)
	if err != nil {
		return nil, fmt.Errorf("Image %v: %w", img.ID, err)
	}
	s.Stats.Since(StageParse, start)

	start = time.Now()
	frame := transform.Frame{
		Image:   pixels,
		Boxes:   ann.Labelled(),
		Ignored: ann.Ignored,
	}
	frame, err = s.config.Transform.Apply(frame, s.sampleRNG(epoch, index))
	if err != nil {
		return nil, fmt.Errorf("Image %v: %w", img.ID, err)
	}
	boxes, labels := SplitLabelled(frame.Boxes)
	s.Stats.Since(StageTransform, start)

	start = time.Now()
	grids, err := s.config.Encoder.Encode(boxes, labels, frame.Ignored, frame.Width(), frame.Height())
	if err != nil {
		return nil, fmt.Errorf("Image %v: %w", img.ID, err)
	}
	s.Stats.Since(StageEncode, start)

	return &Sample{
		ImageID:   img.ID,
		Image:     frame.Image,
		ImagePath: imgPath,
		PadScale:  [2]float32{1, 1},
		OrigShape: [2]float32{float32(pixels.Height), float32(pixels.Width)},
		Grids:     grids,
		Boxes:     boxes,
		Labels:    labels,
		Ignored:   frame.Ignored,
	}, nil
}

// Epoch is one pass over the dataset, in a fixed order
type Epoch struct {
	sampler *Sampler
	number  int
	order   []int
	next    int
}

func (e *Epoch) Number() int {
	return e.number
}

func (e *Epoch) Len() int {
	return len(e.order)
}

// Index returns the sample index at a position of this epoch
func (e *Epoch) Index(position int) int {
	return e.order[position]
}

// Next produces the next sample, or returns io.EOF when the epoch is finished
func (e *Epoch) Next() (*Sample, error) {
	if e.next >= len(e.order) {
		return nil, io.EOF
	}
	pos := e.next
	e.next++
	return e.Produce(pos)
}

// Produce builds the sample at a position of this epoch, independently of Next.
// It is safe to call from multiple goroutines.
func (e *Epoch) Produce(position int) (*Sample, error) {
	return e.sampler.Produce(e.number, e.order[position])
}
