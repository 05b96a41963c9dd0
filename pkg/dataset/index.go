package dataset

import (
	"fmt"

	"github.com/cyclopcam/cocoyolo/pkg/coco"
	"github.com/cyclopcam/cocoyolo/pkg/transform"
	"github.com/cyclopcam/logs"
	"github.com/dustin/go-humanize"
)

const DefaultMinSize = 32

// IndexStats records why candidate images were dropped
type IndexStats struct {
	Candidates int // Images with at least one annotation
	Kept       int
	TooSmall   int // min(width, height) < minSize
	NoBoxes    int // Nothing left after parsing (eg only crowd or degenerate annotations)
}

// Index is the fixed, ordered list of usable images. A sample index is a position in Images.
type Index struct {
	Images []coco.Image
	Stats  IndexStats
}

// BuildIndex enumerates the annotated images of the store, and keeps those that are
// at least minSize on both axes, and that have at least one usable box.
func BuildIndex(log logs.Log, store coco.Store, cats *CategoryMap, minSize int) (*Index, error) {
	ids, err := store.ImageIDs()
	if err != nil {
		return nil, err
	}
	idx := &Index{
		Images: make([]coco.Image, 0, len(ids)),
	}
	idx.Stats.Candidates = len(ids)
	for _, id := range ids {
		img, err := store.Image(id)
		if err != nil {
			return nil, err
		}
		records, err := store.Annotations(id)
		if err != nil {
			return nil, err
		}
		ann, err := ParseAnnotations(records, cats)
		if err != nil {
			return nil, fmt.Errorf("Image %v: %w", id, err)
		}
		if min(img.Width, img.Height) < minSize {
			idx.Stats.TooSmall++
			continue
		}
		if ann.Boxes.Len() == 0 {
			idx.Stats.NoBoxes++
			continue
		}
		idx.Images = append(idx.Images, *img)
	}
	idx.Stats.Kept = len(idx.Images)
	log.Infof("Dataset index: kept %v of %v images (%v too small, %v without boxes)",
		humanize.Comma(int64(idx.Stats.Kept)), humanize.Comma(int64(idx.Stats.Candidates)), idx.Stats.TooSmall, idx.Stats.NoBoxes)
	return idx, nil
}

func (idx *Index) Len() int {
	return len(idx.Images)
}

// BoxSizes returns the (width, height) of every box in the index, as it would be after
// letterboxing to the network input size. This is the input to anchor clustering.
func BoxSizes(store coco.Store, idx *Index, cats *CategoryMap, netWidth, netHeight int) ([][2]float32, error) {
	lb := transform.NewLetterbox(netWidth, netHeight)
	sizes := [][2]float32{}
	for _, img := range idx.Images {
		records, err := store.Annotations(img.ID)
		if err != nil {
			return nil, err
		}
		ann, err := ParseAnnotations(records, cats)
		if err != nil {
			return nil, fmt.Errorf("Image %v: %w", img.ID, err)
		}
		scale, _, _ := lb.Scale(img.Width, img.Height)
		for _, b := range ann.Boxes.List() {
			sizes = append(sizes, [2]float32{b.Width() * scale, b.Height() * scale})
		}
	}
	return sizes, nil
}
