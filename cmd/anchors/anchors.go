package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/cocoyolo/pkg/coco"
	"github.com/cyclopcam/cocoyolo/pkg/dataset"
	"github.com/cyclopcam/cocoyolo/pkg/stats"
	"github.com/cyclopcam/cocoyolo/pkg/storage"
	"github.com/cyclopcam/cocoyolo/pkg/yolo"
	"github.com/cyclopcam/logs"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

// Cluster the box sizes of a COCO subset into anchors
func main() {
	parser := argparse.NewParser("anchors", "Compute YOLO anchors with k-means clustering of box sizes")
	root := parser.String("", "dataset_root", &argparse.Options{Help: "Directory or zip file with annotations/ and images/", Required: true})
	subset := parser.String("", "subset", &argparse.Options{Help: "Subset to cluster", Default: "train"})
	dbDir := parser.String("", "db", &argparse.Options{Help: "Directory of annotation databases created by cocoimport"})
	k := parser.Int("k", "clusters", &argparse.Options{Help: "Number of anchors", Default: yolo.NumScales * yolo.AnchorsPerScale})
	netSize := parser.Int("", "net_size", &argparse.Options{Help: "Network input size (square)", Default: 416})
	minSize := parser.Int("", "min_size", &argparse.Options{Help: "Exclude images smaller than this on either axis", Default: dataset.DefaultMinSize})
	iterations := parser.Int("", "iterations", &argparse.Options{Help: "Maximum k-means iterations", Default: 300})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Random seed", Default: 0})
	output := parser.String("o", "output", &argparse.Options{Help: "Write the anchors to this YAML model config file"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	var store coco.Store
	if *dbDir != "" {
		db, err := coco.OpenDB(logger, coco.DBFilename(*dbDir, *subset))
		check(err)
		defer db.Close()
		store = db
	} else {
		files, err := storage.Open(logger, *root)
		check(err)
		store, err = coco.LoadInstancesFile(files, *subset)
		check(err)
	}

	cats, err := dataset.LoadCategoryMap(store)
	check(err)
	idx, err := dataset.BuildIndex(logger, store, cats, *minSize)
	check(err)
	sizes, err := dataset.BoxSizes(store, idx, cats, *netSize, *netSize)
	check(err)
	widths, heights := stats.BoxDimensions(sizes)
	logger.Infof("Box widths: %v", widths)
	logger.Infof("Box heights: %v", heights)
	logger.Infof("Clustering %v boxes into %v anchors", humanize.Comma(int64(len(sizes))), *k)

	rng := rand.New(rand.NewPCG(uint64(*seed), 0))
	res, err := yolo.KMeansAnchors(sizes, *k, *iterations, rng)
	check(err)
	logger.Infof("Converged after %v iterations. Mean IoU %.3f", res.Iterations, res.MeanIOU)

	parts := []string{}
	for _, a := range res.Anchors {
		parts = append(parts, fmt.Sprintf("%.0f,%.0f", a[0], a[1]))
	}
	fmt.Println(strings.Join(parts, ", "))

	if *output != "" {
		doc := map[string]any{
			"width":   *netSize,
			"height":  *netSize,
			"anchors": res.Anchors,
		}
		b, err := yaml.Marshal(doc)
		check(err)
		check(os.WriteFile(*output, b, 0644))
		logger.Infof("Wrote %v", *output)
	}
}
