package options

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/cocoyolo/pkg/dataset"
	"github.com/cyclopcam/cocoyolo/pkg/nn"
)

// Options is the configuration of a training run.
// Only the dataset related options are consumed by this repo. The rest are carried
// through for the training loop.
type Options struct {
	ExperimentName string
	DatasetName    string
	DatasetRoot    string
	Resume         string // "", "load_darknet", "load_yolov3", or an epoch number
	TotalEpoch     int
	BatchSize      int
	LearningRate   float64
	Momentum       float64
	Decay          float64
	GPUIDs         string // Empty for CPU
	Workers        int
	Debug          bool
	Evaluate       bool
	IgnoreOpti     bool
	LogIter        int
	SaveIter       int
	SaveBest       bool
	LoadBest       bool
	DoTest         bool
	ValidBatch     int
	FreezeDarknet  bool
	NetSize        int

	DB          string // Directory of sqlite annotation databases, created by cocoimport
	MinSize     int    // Images smaller than this on either axis are excluded
	Seed        int
	ModelConfig string // JSON or YAML file with anchors and classes
	ClassFile   string // Text file of class names, one per line. Overrides the classes of ModelConfig.
	DebugDir    string // Where to write visualisations when Debug is set
}

type ResumeMode int

const (
	ResumeNone ResumeMode = iota
	ResumeDarknet
	ResumeYOLOv3
	ResumeEpoch
)

// Flags holds the parsed values of the flags registered by AddFlags
type Flags struct {
	experimentName *string
	datasetName    *string
	datasetRoot    *string
	resume         *string
	totalEpoch     *int
	batchSize      *int
	learningRate   *float64
	momentum       *float64
	decay          *float64
	gpuIDs         *string
	workers        *int
	debug          *bool
	evaluate       *bool
	ignoreOpti     *bool
	logIter        *int
	saveIter       *int
	saveBest       *bool
	loadBest       *bool
	doTest         *bool
	validBatch     *int
	freezeDarknet  *bool
	netSize        *int
	db             *string
	minSize        *int
	seed           *int
	modelConfig    *string
	classFile      *string
	debugDir       *string
}

// AddFlags registers the training options with a parser.
// Call Flags.Options after the parser has run.
func AddFlags(parser *argparse.Parser) *Flags {
	return &Flags{
		experimentName: parser.String("", "experiment_name", &argparse.Options{Help: "Name of the experiment", Default: "train_yolov3"}),
		datasetName:    parser.String("", "dataset_name", &argparse.Options{Help: "Dataset name", Default: "COCO"}),
		datasetRoot:    parser.String("", "dataset_root", &argparse.Options{Help: "Directory or zip file with annotations/ and images/"}),
		resume:         parser.String("", "resume", &argparse.Options{Help: "load_darknet, load_yolov3, or an epoch number"}),
		totalEpoch:     parser.Int("", "total_epoch", &argparse.Options{Help: "Number of epochs to train", Default: 100}),
		batchSize:      parser.Int("", "batch_size", &argparse.Options{Help: "Batch size for training", Default: 8}),
		learningRate:   parser.Float("", "learning_rate", &argparse.Options{Help: "The learning rate", Default: 0.002}),
		momentum:       parser.Float("", "momentum", &argparse.Options{Help: "Momentum", Default: 0.9}),
		decay:          parser.Float("", "decay", &argparse.Options{Help: "Weight decay (L2 penalty)", Default: 0.0005}),
		gpuIDs:         parser.String("", "gpu_ids", &argparse.Options{Help: "Empty for CPU, otherwise comma separated GPU IDs", Default: "1"}),
		workers:        parser.Int("", "workers", &argparse.Options{Help: "Number of data loading workers", Default: 2}),
		debug:          parser.Flag("", "debug", &argparse.Options{Help: "Write visualisations of the training samples"}),
		evaluate:       parser.Flag("", "evaluate", &argparse.Options{Help: "Evaluate only"}),
		ignoreOpti:     parser.Flag("", "ignore_opti", &argparse.Options{Help: "Do not restore optimizer state when resuming"}),
		logIter:        parser.Int("", "log_iter", &argparse.Options{Help: "Log every N iterations", Default: 5000}),
		saveIter:       parser.Int("", "save_iter", &argparse.Options{Help: "Save a checkpoint every N iterations", Default: 5000}),
		saveBest:       parser.Flag("", "save_best", &argparse.Options{Help: "Keep the best checkpoint"}),
		loadBest:       parser.Flag("", "load_best", &argparse.Options{Help: "Resume from the best checkpoint"}),
		doTest:         parser.Flag("", "do_test", &argparse.Options{Help: "Run the test pass"}),
		validBatch:     parser.Int("", "valid_batch", &argparse.Options{Help: "Number of validation batches, to save time", Default: 50}),
		freezeDarknet:  parser.Flag("", "freeze_darknet", &argparse.Options{Help: "Freeze the backbone weights"}),
		netSize:        parser.Int("", "net_size", &argparse.Options{Help: "Network input size (square)", Default: nn.DefaultInputSize}),
		db:             parser.String("", "db", &argparse.Options{Help: "Directory of annotation databases created by cocoimport. If empty, read the JSON instances files."}),
		minSize:        parser.Int("", "min_size", &argparse.Options{Help: "Exclude images smaller than this on either axis", Default: dataset.DefaultMinSize}),
		seed:           parser.Int("", "seed", &argparse.Options{Help: "Random seed for shuffling and augmentation", Default: 0}),
		modelConfig:    parser.String("", "model_config", &argparse.Options{Help: "JSON or YAML file with anchors and classes. Default is YOLOv3 on COCO."}),
		classFile:      parser.String("", "class_file", &argparse.Options{Help: "Text file with one class name per line. Overrides the classes of model_config."}),
		debugDir:       parser.String("", "debug_dir", &argparse.Options{Help: "Output directory for --debug", Default: "debug"}),
	}
}

// Options returns the parsed values
func (f *Flags) Options() *Options {
	return &Options{
		ExperimentName: *f.experimentName,
		DatasetName:    *f.datasetName,
		DatasetRoot:    *f.datasetRoot,
		Resume:         *f.resume,
		TotalEpoch:     *f.totalEpoch,
		BatchSize:      *f.batchSize,
		LearningRate:   *f.learningRate,
		Momentum:       *f.momentum,
		Decay:          *f.decay,
		GPUIDs:         *f.gpuIDs,
		Workers:        *f.workers,
		Debug:          *f.debug,
		Evaluate:       *f.evaluate,
		IgnoreOpti:     *f.ignoreOpti,
		LogIter:        *f.logIter,
		SaveIter:       *f.saveIter,
		SaveBest:       *f.saveBest,
		LoadBest:       *f.loadBest,
		DoTest:         *f.doTest,
		ValidBatch:     *f.validBatch,
		FreezeDarknet:  *f.freezeDarknet,
		NetSize:        *f.netSize,
		DB:             *f.db,
		MinSize:        *f.minSize,
		Seed:           *f.seed,
		ModelConfig:    *f.modelConfig,
		ClassFile:      *f.classFile,
		DebugDir:       *f.debugDir,
	}
}

// Parse parses a full command line (args[0] is the program name) into Options.
// On failure, the returned error includes the usage text.
func Parse(name, description string, args []string) (*Options, error) {
	parser := argparse.NewParser(name, description)
	flags := AddFlags(parser)
	if err := parser.Parse(args); err != nil {
		return nil, errors.New(parser.Usage(err))
	}
	opt := flags.Options()
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

// Validate rejects values that cannot work
func (o *Options) Validate() error {
	if o.DatasetRoot == "" {
		return errors.New("dataset_root is required")
	}
	if o.NetSize <= 0 || o.NetSize%32 != 0 {
		return fmt.Errorf("net_size %v must be a positive multiple of 32", o.NetSize)
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive (got %v)", o.BatchSize)
	}
	if o.Workers <= 0 {
		return fmt.Errorf("workers must be positive (got %v)", o.Workers)
	}
	if o.TotalEpoch < 0 {
		return fmt.Errorf("total_epoch may not be negative (got %v)", o.TotalEpoch)
	}
	if o.MinSize < 0 {
		return fmt.Errorf("min_size may not be negative (got %v)", o.MinSize)
	}
	if o.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive (got %v)", o.LearningRate)
	}
	if _, _, err := o.ResumeMode(); err != nil {
		return err
	}
	return nil
}

// ResumeMode interprets the resume option. epoch is only meaningful for ResumeEpoch.
func (o *Options) ResumeMode() (mode ResumeMode, epoch int, err error) {
	switch o.Resume {
	case "":
		return ResumeNone, 0, nil
	case "load_darknet":
		return ResumeDarknet, 0, nil
	case "load_yolov3":
		return ResumeYOLOv3, 0, nil
	}
	epoch, err = strconv.Atoi(o.Resume)
	if err != nil || epoch < 0 {
		return ResumeNone, 0, fmt.Errorf("Invalid resume value '%v'. Must be load_darknet, load_yolov3, or an epoch number", o.Resume)
	}
	return ResumeEpoch, epoch, nil
}

// GPUs returns the list of GPU IDs. An empty list means CPU.
func (o *Options) GPUs() []string {
	gpus := []string{}
	for _, g := range strings.Split(o.GPUIDs, ",") {
		if g = strings.TrimSpace(g); g != "" {
			gpus = append(gpus, g)
		}
	}
	return gpus
}

// LoadModelConfig returns the model described by the model_config option,
// with its input size taken from net_size, and its classes from class_file.
func (o *Options) LoadModelConfig() (*nn.ModelConfig, error) {
	cfg := nn.DefaultModelConfig()
	var err error
	if o.ModelConfig != "" {
		if cfg, err = nn.LoadModelConfig(o.ModelConfig); err != nil {
			return nil, err
		}
	}
	if o.ClassFile != "" {
		if cfg.Classes, err = nn.LoadClassFile(o.ClassFile); err != nil {
			return nil, err
		}
	}
	cfg.Width = o.NetSize
	cfg.Height = o.NetSize
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatasetConfig returns the dataset configuration of a subset ("train" or "val").
// The train subset is shuffled and augmented.
func (o *Options) DatasetConfig(subset string, model *nn.ModelConfig) dataset.Config {
	return dataset.Config{
		Root:      o.DatasetRoot,
		Subset:    subset,
		DBDir:     o.DB,
		Train:     subset == "train",
		NetWidth:  model.Width,
		NetHeight: model.Height,
		MinSize:   o.MinSize,
		Anchors:   model.Anchors,
		BatchSize: o.BatchSize,
		Workers:   o.Workers,
		Seed:      uint64(o.Seed),
	}
}
