package main

import (
	"fmt"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/cocoyolo/pkg/coco"
	"github.com/cyclopcam/cocoyolo/pkg/storage"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

// Copy a COCO instances JSON file into an sqlite annotation database
func main() {
	parser := argparse.NewParser("cocoimport", "Import COCO instance annotations into an sqlite database")
	root := parser.String("", "dataset_root", &argparse.Options{Help: "Directory or zip file with annotations/ and images/", Required: true})
	dbDir := parser.String("", "db", &argparse.Options{Help: "Output directory. Each subset is written to <db>/<subset>.sqlite", Required: true})
	subsets := parser.StringList("", "subset", &argparse.Options{Help: "Subsets to import", Default: []string{"train", "val"}})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	store, err := storage.Open(logger, *root)
	check(err)
	check(os.MkdirAll(*dbDir, 0755))

	for _, subset := range *subsets {
		start := time.Now()
		inst, err := coco.LoadInstancesFile(store, subset)
		check(err)
		logger.Infof("Loaded %v in %.1f seconds", coco.InstancesFile(subset), time.Since(start).Seconds())

		db, err := coco.OpenDB(logger, coco.DBFilename(*dbDir, subset))
		check(err)
		check(db.Import(inst))
		db.Close()
	}
}
