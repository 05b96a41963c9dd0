package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/cocoyolo/pkg/dataset"
	"github.com/cyclopcam/cocoyolo/pkg/debugdraw"
	"github.com/cyclopcam/cocoyolo/pkg/options"
	"github.com/cyclopcam/cocoyolo/pkg/perfstats"
	"github.com/cyclopcam/logs"
	"github.com/dustin/go-humanize"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

// Run the data pipeline without a model attached, to measure throughput and
// to inspect the training samples.
func main() {
	parser := argparse.NewParser("cocoloader", "Iterate over COCO training batches")
	flags := options.AddFlags(parser)
	subset := parser.Selector("", "subset", []string{"train", "val"}, &argparse.Options{Help: "Which subset to iterate", Default: "train"})
	epochs := parser.Int("", "epochs", &argparse.Options{Help: "Number of epochs to run (0 = total_epoch)", Default: 1})
	maxDebug := parser.Int("", "max_debug", &argparse.Options{Help: "Maximum number of samples to draw per epoch when --debug is set", Default: 50})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}
	opt := flags.Options()
	if err := opt.Validate(); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	model, err := opt.LoadModelConfig()
	check(err)

	ds, err := dataset.Open(logger, opt.DatasetConfig(*subset, model))
	check(err)
	defer ds.Close()
	if ds.Categories.Len() != len(model.Classes) {
		logger.Warnf("Dataset has %v categories, but the model has %v classes", ds.Categories.Len(), len(model.Classes))
	}
	logger.Infof("%v: %v images, %v batches of %v per epoch", *subset, humanize.Comma(int64(ds.Index.Len())), ds.Loader.NumBatches(), opt.BatchSize)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	nEpochs := *epochs
	if nEpochs <= 0 {
		nEpochs = opt.TotalEpoch
	}
	for epoch := 0; epoch < nEpochs; epoch++ {
		nDebug := 0
		nBatches := 0
		nObjects := 0
		lastLog := time.Now()
		throughput := perfstats.NewThroughput(20)
		err := ds.Loader.RunEpoch(ctx, func(b *dataset.Batch) error {
			nBatches++
			throughput.Add(int64(b.Size), time.Now())
			for _, s := range b.Samples {
				nObjects += s.Boxes.Len()
				if opt.Debug && nDebug < *maxDebug {
					if _, err := debugdraw.WriteSample(opt.DebugDir, s, model.Classes); err != nil {
						return err
					}
					nDebug++
				}
			}
			if time.Since(lastLog) > 10*time.Second {
				logger.Infof("Epoch %v: batch %v/%v, %.1f samples/s", b.Epoch, nBatches, ds.Loader.NumBatches(), throughput.Rate())
				lastLog = time.Now()
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			logger.Infof("Interrupted")
			return
		}
		check(err)
		logger.Infof("Epoch %v done: %v batches, %v objects", epoch, nBatches, humanize.Comma(int64(nObjects)))
		if opt.Debug {
			logger.Infof("Wrote %v debug samples to %v", nDebug, opt.DebugDir)
		}
	}
}
