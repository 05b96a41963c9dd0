package coco

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/dustin/go-humanize"
	"gorm.io/gorm"
)

// Number of rows per INSERT statement during import
const importBatchSize = 500

// DB is a Store backed by an SQL database.
// Use Import to populate it from an instances file.
type DB struct {
	log logs.Log
	db  *gorm.DB
}

// DBFilename is the sqlite file that holds the annotations of a subset
func DBFilename(dir, subset string) string {
	return filepath.Join(dir, subset+".sqlite")
}

// Open or create an annotation database in an sqlite file
func OpenDB(log logs.Log, dbFilename string) (*DB, error) {
	return OpenDBConfig(log, dbh.MakeSqliteConfig(dbFilename))
}

// Open or create an annotation database (sqlite or postgres)
func OpenDBConfig(log logs.Log, config dbh.DBConfig) (*DB, error) {
	log.Infof("Opening annotation DB (%v)", config.LogSafeDescription())
	db, err := dbh.OpenDB(log, config, Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open annotation database: %w", err)
	}
	return &DB{
		log: log,
		db:  db,
	}, nil
}

func (d *DB) Close() {
	if sqlDB, err := d.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// Importable is a store that can list all of its contents, such as Instances
type Importable interface {
	AllImages() []Image
	AllAnnotations() []Annotation
	Categories() ([]Category, error)
}

// Import replaces the contents of the database with 'inst'
func (d *DB) Import(inst Importable) error {
	images := []dbImage{}
	for _, img := range inst.AllImages() {
		images = append(images, dbImage{
			BaseModel: BaseModel{ID: img.ID},
			FileName:  img.FileName,
			Width:     img.Width,
			Height:    img.Height,
		})
	}
	cats, err := inst.Categories()
	if err != nil {
		return fmt.Errorf("Failed to read categories: %w", err)
	}
	categories := []dbCategory{}
	for i, c := range cats {
		categories = append(categories, dbCategory{
			BaseModel:     BaseModel{ID: c.ID},
			Position:      i,
			Name:          c.Name,
			Supercategory: c.Supercategory,
		})
	}
	anns := inst.AllAnnotations()
	annotations := make([]dbAnnotation, len(anns))
	for i := range anns {
		annotations[i] = fromAnnotation(&anns[i])
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"annotation", "category", "image"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}
		if len(images) != 0 {
			if err := tx.CreateInBatches(images, importBatchSize).Error; err != nil {
				return err
			}
		}
		if len(categories) != 0 {
			if err := tx.CreateInBatches(categories, importBatchSize).Error; err != nil {
				return err
			}
		}
		if len(annotations) != 0 {
			if err := tx.CreateInBatches(annotations, importBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("Failed to import annotations: %w", err)
	}
	d.log.Infof("Imported %v images, %v categories, %v annotations",
		humanize.Comma(int64(len(images))), len(categories), humanize.Comma(int64(len(annotations))))
	return nil
}

// AddAnnotation inserts a single annotation
func (d *DB) AddAnnotation(a Annotation) error {
	row := fromAnnotation(&a)
	if row.ID == 0 {
		// Let the database pick the ID
		return d.db.Omit("id").Create(&row).Error
	}
	return d.db.Create(&row).Error
}

func (d *DB) ImageIDs() ([]int64, error) {
	ids := []int64{}
	err := d.db.Model(&dbAnnotation{}).Distinct("image_id").Order("image_id").Pluck("image_id", &ids).Error
	return ids, err
}

func (d *DB) Image(id int64) (*Image, error) {
	row := dbImage{}
	if err := d.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errImageNotFound(id)
		}
		return nil, err
	}
	return &Image{
		ID:       row.ID,
		FileName: row.FileName,
		Width:    row.Width,
		Height:   row.Height,
	}, nil
}

func (d *DB) Annotations(imageID int64) ([]Annotation, error) {
	rows := []dbAnnotation{}
	if err := d.db.Where("image_id = ?", imageID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	anns := make([]Annotation, len(rows))
	for i := range rows {
		anns[i] = rows[i].toAnnotation()
	}
	return anns, nil
}

func (d *DB) Categories() ([]Category, error) {
	rows := []dbCategory{}
	if err := d.db.Order("position").Find(&rows).Error; err != nil {
		return nil, err
	}
	cats := make([]Category, len(rows))
	for i, r := range rows {
		cats[i] = Category{ID: r.ID, Name: r.Name, Supercategory: r.Supercategory}
	}
	return cats, nil
}
