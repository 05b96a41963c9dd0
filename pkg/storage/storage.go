package storage

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
)

// Storage is a read-only view of a dataset root (eg a directory, or a zip archive of one)
type Storage interface {
	// When finished, you must close File.Reader
	ReadFile(name string) (*File, error)

	// Human readable location of the storage, for logs
	Location() string
}

// File is an element in blob storage.
type File struct {
	Reader     io.ReadCloser
	ModifiedAt time.Time
	Size       int64
}

var ErrInvalidName = errors.New("Invalid file name")

// Open a dataset root. Paths ending in ".zip" are opened as zip archives, everything else
// must be a directory.
func Open(log logs.Log, root string) (Storage, error) {
	if strings.HasSuffix(strings.ToLower(root), ".zip") {
		return NewStorageZip(log, root)
	}
	return NewStorageFS(log, root)
}

// ReadFile returns the entire contents of a file
func ReadFile(s Storage, name string) ([]byte, error) {
	f, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	return io.ReadAll(f.Reader)
}

// Returns true if the storage reports that the file does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func validName(name string) bool {
	return name != "" && !strings.Contains(name, "..")
}
