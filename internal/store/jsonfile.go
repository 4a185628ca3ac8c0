package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// File persists gestures as a single JSON document.
type File struct {
	path string
	log  *zap.SugaredLogger
}

// NewFile returns a File backend for path.
func NewFile(path string, log *zap.SugaredLogger) *File {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &File{path: path, log: log}
}

// Path returns the document location.
func (f *File) Path() string {
	return f.path
}

// Load reads the document. A missing file is an empty collection.
func (f *File) Load() ([]Gesture, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return DecodeGestures(data, f.log)
}

// Save writes the document through a temporary file so a failed write never
// truncates the previous version.
func (f *File) Save(gestures []Gesture) error {
	data, err := EncodeGestures(gestures)
	if err != nil {
		return fmt.Errorf("encode gestures: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create gesture dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp gestures: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename gestures: %w", err)
	}
	return nil
}
