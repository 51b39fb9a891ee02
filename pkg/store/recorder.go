package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
	"github.com/sirupsen/logrus"
)

// Recorder appends snapshots to a JSON array file so they can be replayed
// by the backtester later.
type Recorder struct {
	path      string
	snapshots []models.Snapshot
	logger    *logrus.Logger
}

// NewRecorder loads any snapshots already stored at path.
func NewRecorder(path string, logger *logrus.Logger) (*Recorder, error) {
	existing, err := Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"path":     path,
		"existing": len(existing),
	}).Info("Snapshot recorder ready")

	return &Recorder{
		path:      path,
		snapshots: existing,
		logger:    logger,
	}, nil
}

// Record stamps snap with the collection time and rewrites the file.
func (r *Recorder) Record(snap *models.Snapshot, collectedAt time.Time) error {
	stored := *snap
	stored.Quotes = append([]models.Quote(nil), snap.Quotes...)
	ts := models.NewTimestamp(collectedAt)
	stored.CollectedAt = &ts

	r.snapshots = append(r.snapshots, stored)
	if err := Save(r.path, r.snapshots); err != nil {
		r.snapshots = r.snapshots[:len(r.snapshots)-1]
		return err
	}
	return nil
}

func (r *Recorder) Len() int {
	return len(r.snapshots)
}

// Load reads a snapshot file written by Recorder.
func Load(path string) ([]models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snapshots []models.Snapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return snapshots, nil
}

// Save writes snapshots atomically through a temp file and rename.
func Save(path string, snapshots []models.Snapshot) error {
	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshots: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
