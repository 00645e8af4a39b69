package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/askboard/askboard/config"
)

// StoredFile describes an upload persisted to the media directory.
type StoredFile struct {
	FilePath string // filesystem path
	URL      string // public URL under /media
	Format   string
}

// StoreImage re-encodes the raw upload and writes it into a date-partitioned
// directory under the configured media root with a uuid filename.
func StoreImage(data []byte) (*StoredFile, error) {
	enc, err := ReencodeImage(data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	year := now.Format("2006")
	month := now.Format("01")
	day := now.Format("02")

	cfg := config.Get()
	baseDir := filepath.Join(cfg.MediaDir, "uploads", year, month, day)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	name := uuid.New().String() + enc.Ext
	dstPath := filepath.Join(baseDir, name)
	if err := os.WriteFile(dstPath, enc.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	return &StoredFile{
		FilePath: dstPath,
		URL:      fmt.Sprintf("/media/uploads/%s/%s/%s/%s", year, month, day, name),
		Format:   enc.Format,
	}, nil
}

// RemoveStoredFile deletes the file behind a stored image. Missing files are
// not an error; replacement deletes may race the orphan sweep.
func RemoveStoredFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		if Sugar != nil {
			Sugar.Warnf("remove stored file %s: %v", path, err)
		}
	}
}
