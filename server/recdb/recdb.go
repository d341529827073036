package recdb

// Package recdb is the index of finished recordings. The MP4 files live in
// the output directory; this sqlite DB holds their metadata so the API can
// list and delete them without walking the filesystem.

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

type RecDB struct {
	log  logs.Log
	db   *gorm.DB
	root string // Directory holding the MP4 files and the sqlite DB
}

// Recording is one finished MP4 on disk
type Recording struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	RandomID   string      `json:"randomID"` // Hard to guess handle, used in download URLs
	Camera     string      `json:"camera"`
	StartTime  dbh.IntTime `json:"startTime"`
	DurationMS int64       `json:"durationMS"`
	Format     string      `json:"format"`   // "mp4"
	Filename   string      `json:"filename"` // Relative to the recordings root
	SizeBytes  int64       `json:"sizeBytes"`
}

// Open or create the recordings DB inside root
func Open(logger logs.Log, root string) (*RecDB, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0777); err != nil {
		return nil, fmt.Errorf("Failed to create recordings directory '%v': %w", root, err)
	}
	dbPath := filepath.Join(root, "recordings.sqlite")
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbPath), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open recordings database %v: %w", dbPath, err)
	}
	return &RecDB{
		log:  logger,
		db:   db,
		root: root,
	}, nil
}

// Root returns the directory holding the recordings.
func (r *RecDB) Root() string {
	return r.root
}

// Add indexes a finished recording. filename must be inside the root.
func (r *RecDB) Add(camera string, startTime time.Time, duration time.Duration, filename string, sizeBytes int64) (*Recording, error) {
	rel, err := filepath.Rel(r.root, filename)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("Recording %v is not inside the recordings root %v", filename, r.root)
	}
	rec := &Recording{
		RandomID:   randomID(),
		Camera:     camera,
		StartTime:  dbh.MakeIntTime(startTime),
		DurationMS: duration.Milliseconds(),
		Format:     "mp4",
		Filename:   rel,
		SizeBytes:  sizeBytes,
	}
	if err := r.db.Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns recordings, newest first. camera filters when non-empty.
func (r *RecDB) List(camera string) ([]Recording, error) {
	recordings := []Recording{}
	q := r.db.Order("start_time DESC")
	if camera != "" {
		q = q.Where("camera = ?", camera)
	}
	if err := q.Find(&recordings).Error; err != nil {
		return nil, err
	}
	return recordings, nil
}

// Get returns one recording by ID.
func (r *RecDB) Get(id int64) (*Recording, error) {
	rec := Recording{}
	if err := r.db.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes a recording's row and its file.
func (r *RecDB) Delete(id int64) error {
	rec, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.db.Delete(&Recording{}, id).Error; err != nil {
		return err
	}
	fullPath := filepath.Join(r.root, rec.Filename)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		r.log.Warnf("Deleted recording %v from the index, but failed to delete %v: %v", id, fullPath, err)
	}
	return nil
}

// FullPath returns the absolute path of a recording's file.
func (r *RecDB) FullPath(rec *Recording) string {
	return filepath.Join(r.root, rec.Filename)
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
