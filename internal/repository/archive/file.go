package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Repository opens the archive for reading.
type Repository interface {
	Open(ctx context.Context) (*Handle, error)
}

// Handle is an open archive together with the attributes needed to serve it.
type Handle struct {
	io.ReadSeekCloser

	// Name is the base name of the archive file.
	Name string
	// ModTime is the modification time at open.
	ModTime time.Time
	// Size is the byte length at open.
	Size int64
}

// FileRepository serves the archive stored at a fixed path on disk.
type FileRepository struct {
	// path is the filesystem location of the archive.
	path string
}

// ErrNotFound is returned when the archive no longer exists or is not a regular file.
var ErrNotFound = errors.New("archive not found")

// NewFileRepository creates a repository for the archive at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the cleaned archive path.
func (r *FileRepository) Path() string {
	return r.path
}

// Open opens a new handle to the archive. The caller must close it.
func (r *FileRepository) Open(_ context.Context) (*Handle, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("open archive: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("stat archive: %w", err)
	}

	if !info.Mode().IsRegular() {
		_ = f.Close()

		return nil, fmt.Errorf("%s is not a regular file: %w", r.path, ErrNotFound)
	}

	return &Handle{
		ReadSeekCloser: f,
		Name:           info.Name(),
		ModTime:        info.ModTime(),
		Size:           info.Size(),
	}, nil
}
