package recdb

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
		CREATE TABLE recording(
			id INTEGER PRIMARY KEY,
			random_id TEXT NOT NULL,
			camera TEXT NOT NULL,
			start_time INT NOT NULL,
			duration_ms INT NOT NULL,
			format TEXT NOT NULL,
			filename TEXT NOT NULL,
			size_bytes INT NOT NULL
		);

		CREATE INDEX idx_recording_camera_start_time ON recording (camera, start_time);
	`))

	return migs
}
