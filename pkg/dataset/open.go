package dataset

import (
	"fmt"
	"os"

	"github.com/cyclopcam/cocoyolo/pkg/coco"
	"github.com/cyclopcam/cocoyolo/pkg/imagecodec"
	"github.com/cyclopcam/cocoyolo/pkg/storage"
	"github.com/cyclopcam/cocoyolo/pkg/transform"
	"github.com/cyclopcam/cocoyolo/pkg/yolo"
	"github.com/cyclopcam/logs"
)

// Config describes one subset of a COCO dataset, and how to turn it into batches
type Config struct {
	Root      string // Directory or zip file with annotations/ and images/
	Subset    string // "train" or "val"
	DBDir     string // If not empty, annotations are read from <DBDir>/<subset>.sqlite instead of the JSON file
	Train     bool   // Shuffle, augment and drop the final short batch
	NetWidth  int
	NetHeight int
	MinSize   int
	Anchors   [][2]float32 // 9 anchors, smallest first
	BatchSize int
	Workers   int
	Seed      uint64
}

// Dataset is an opened subset, ready for iteration
type Dataset struct {
	Storage    storage.Storage
	Store      coco.Store
	Categories *CategoryMap
	Index      *Index
	Sampler    *Sampler
	Loader     *Loader

	db *coco.DB
}

// Open loads the annotations of a subset, builds its index, and prepares a loader.
// Training subsets are shuffled and randomly augmented, other subsets are only letterboxed.
func Open(log logs.Log, cfg Config) (*Dataset, error) {
	ds := &Dataset{}
	var err error
	if ds.Storage, err = storage.Open(log, cfg.Root); err != nil {
		return nil, err
	}
	if cfg.DBDir != "" {
		dbFile := coco.DBFilename(cfg.DBDir, cfg.Subset)
		if _, err := os.Stat(dbFile); err != nil {
			ds.Close()
			return nil, fmt.Errorf("Annotation database %v not found. Create it with cocoimport: %w", dbFile, err)
		}
		if ds.db, err = coco.OpenDB(log, dbFile); err != nil {
			ds.Close()
			return nil, err
		}
		ds.Store = ds.db
	} else {
		inst, err := coco.LoadInstancesFile(ds.Storage, cfg.Subset)
		if err != nil {
			ds.Close()
			return nil, err
		}
		ds.Store = inst
	}
	if err := ds.build(log, cfg); err != nil {
		ds.Close()
		return nil, err
	}
	return ds, nil
}

// OpenStore prepares a dataset over an already opened record store
func OpenStore(log logs.Log, store coco.Store, images storage.Storage, cfg Config) (*Dataset, error) {
	ds := &Dataset{
		Storage: images,
		Store:   store,
	}
	if err := ds.build(log, cfg); err != nil {
		return nil, err
	}
	return ds, nil
}

func (ds *Dataset) build(log logs.Log, cfg Config) error {
	var err error
	if ds.Categories, err = LoadCategoryMap(ds.Store); err != nil {
		return err
	}
	minSize := cfg.MinSize
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if ds.Index, err = BuildIndex(log, ds.Store, ds.Categories, minSize); err != nil {
		return err
	}
	anchors, err := yolo.MakeAnchorSet(cfg.Anchors)
	if err != nil {
		return err
	}
	var xform transform.Transform
	if cfg.Train {
		xform = transform.NewTrainTransform(cfg.NetWidth, cfg.NetHeight)
	} else {
		xform = transform.NewValTransform(cfg.NetWidth, cfg.NetHeight)
	}
	ds.Sampler, err = NewSampler(log, ds.Store, imagecodec.NewStorageCodec(ds.Storage), ds.Index, ds.Categories, SamplerConfig{
		ImageDir:  coco.ImageDir(cfg.Subset),
		Transform: xform,
		Encoder:   yolo.NewEncoder(anchors, ds.Categories.Len()),
		Shuffle:   cfg.Train,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return err
	}
	ds.Loader = NewLoader(log, ds.Sampler, cfg.BatchSize, cfg.Workers, cfg.Train)
	return nil
}

func (ds *Dataset) Close() {
	if ds.db != nil {
		ds.db.Close()
		ds.db = nil
	}
	if c, ok := ds.Storage.(interface{ Close() error }); ok {
		c.Close()
	}
}
