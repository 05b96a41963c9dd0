package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cyclopcam/cocoyolo/pkg/yolo"
	"github.com/cyclopcam/logs"
	"golang.org/x/sync/errgroup"
)

// Batch is a group of samples, stacked into dense arrays
type Batch struct {
	Epoch  int
	Size   int // Number of samples
	Height int
	Width  int

	Images     []float32 // (Size, Height, Width, 3), RGB in [0, 255]
	Paths      []string
	PadScales  [][2]float32
	OrigShapes [][2]float32
	Grids      [yolo.NumScales][]float32 // Each is (Size, rows, cols, anchors, channels)
	GridShapes [yolo.NumScales][4]int    // Shape of a single sample's grid
	Samples    []*Sample
}

// MakeBatch stacks samples. All samples must have the same image size.
func MakeBatch(epoch int, samples []*Sample) (*Batch, error) {
	if len(samples) == 0 {
		return nil, errors.New("Empty batch")
	}
	first := samples[0]
	b := &Batch{
		Epoch:   epoch,
		Size:    len(samples),
		Width:   first.Image.Width,
		Height:  first.Image.Height,
		Samples: samples,
	}
	pixelsPerImage := b.Width * b.Height * 3
	b.Images = make([]float32, 0, pixelsPerImage*len(samples))
	for s := 0; s < yolo.NumScales; s++ {
		b.GridShapes[s] = first.Grids[s].Shape()
		b.Grids[s] = make([]float32, 0, len(first.Grids[s].Data)*len(samples))
	}

	for i, sample := range samples {
		img := sample.Image
		if img.Width != b.Width || img.Height != b.Height || img.NChan() != 3 {
			return nil, fmt.Errorf("Sample %v image is %vx%vx%v, but batch is %vx%vx3", i, img.Width, img.Height, img.NChan(), b.Width, b.Height)
		}
		for y := 0; y < img.Height; y++ {
			line := img.Pixels[y*img.Stride : y*img.Stride+img.Width*3]
			for _, v := range line {
				b.Images = append(b.Images, float32(v))
			}
		}
		for s := 0; s < yolo.NumScales; s++ {
			if sample.Grids[s].Shape() != b.GridShapes[s] {
				return nil, fmt.Errorf("Sample %v grid %v has shape %v, but batch has %v", i, s, sample.Grids[s].Shape(), b.GridShapes[s])
			}
			b.Grids[s] = append(b.Grids[s], sample.Grids[s].Data...)
		}
		b.Paths = append(b.Paths, sample.ImagePath)
		b.PadScales = append(b.PadScales, sample.PadScale)
		b.OrigShapes = append(b.OrigShapes, sample.OrigShape)
	}
	return b, nil
}

// Loader produces batches from a Sampler, using a pool of worker goroutines.
// Batches are delivered in epoch order, regardless of the number of workers.
type Loader struct {
	Log           logs.Log
	Sampler       *Sampler
	BatchSize     int
	Workers       int
	DropRemainder bool // Skip the final batch if it would be smaller than BatchSize
}

func NewLoader(log logs.Log, sampler *Sampler, batchSize, workers int, dropRemainder bool) *Loader {
	return &Loader{
		Log:           log,
		Sampler:       sampler,
		BatchSize:     max(batchSize, 1),
		Workers:       max(workers, 1),
		DropRemainder: dropRemainder,
	}
}

// NumBatches returns the number of batches in an epoch
func (l *Loader) NumBatches() int {
	n := l.Sampler.Len()
	if l.DropRemainder {
		return n / l.BatchSize
	}
	return (n + l.BatchSize - 1) / l.BatchSize
}

type produced struct {
	position int
	sample   *Sample
}

// RunEpoch starts a new epoch, and calls fn with each batch, in order.
// The first error from sample production or from fn stops the epoch and is returned.
func (l *Loader) RunEpoch(ctx context.Context, fn func(*Batch) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	epoch := l.Sampler.Epoch()
	total := epoch.Len()
	if l.DropRemainder {
		total = (total / l.BatchSize) * l.BatchSize
	}
	if total == 0 {
		l.Log.Warnf("Epoch %v has no complete batches", epoch.Number())
		return nil
	}
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	positions := make(chan int)
	results := make(chan produced, l.Workers)
	// Bounds the number of samples that have been started, but not yet delivered in a batch
	window := make(chan struct{}, l.BatchSize+2*l.Workers)

	g.Go(func() error {
		defer close(positions)
		for pos := 0; pos < total; pos++ {
			select {
			case window <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case positions <- pos:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var workers sync.WaitGroup
	for w := 0; w < l.Workers; w++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for pos := range positions {
				sample, err := epoch.Produce(pos)
				if err != nil {
					return err
				}
				select {
				case results <- produced{pos, sample}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		workers.Wait()
		close(results)
		return nil
	})

	g.Go(func() error {
		pending := map[int]*Sample{}
		next := 0
		batch := make([]*Sample, 0, l.BatchSize)
		for r := range results {
			pending[r.position] = r.sample
			for {
				sample, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				batch = append(batch, sample)
				next++
				if len(batch) == l.BatchSize || next == total {
					b, err := MakeBatch(epoch.Number(), batch)
					if err != nil {
						return err
					}
					if err := fn(b); err != nil {
						return err
					}
					for range batch {
						<-window
					}
					batch = make([]*Sample, 0, l.BatchSize)
				}
			}
		}
		if next != total {
			// Production was cut short, and the cause is reported by another goroutine
			return ctx.Err()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	l.Log.Infof("Epoch %v: %v samples in %.1f seconds (%.1f samples/s). %v",
		epoch.Number(), total, elapsed.Seconds(), float64(total)/elapsed.Seconds(), l.Sampler.Stats)
	return nil
}
