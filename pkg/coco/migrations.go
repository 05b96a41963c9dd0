package coco

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE image(
			id INTEGER PRIMARY KEY,
			file_name TEXT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL
		);

		CREATE TABLE category(
			id INTEGER PRIMARY KEY,
			position INT NOT NULL,
			name TEXT NOT NULL,
			supercategory TEXT NOT NULL
		);

		CREATE TABLE annotation(
			id INTEGER PRIMARY KEY,
			image_id INT NOT NULL,
			category_id INT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			width REAL NOT NULL,
			height REAL NOT NULL,
			area REAL NOT NULL,
			is_crowd BOOLEAN NOT NULL,
			is_ignored BOOLEAN NOT NULL
		);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE INDEX idx_annotation_image_id ON annotation(image_id);
		CREATE INDEX idx_category_position ON category(position);
	`))

	return migs
}
