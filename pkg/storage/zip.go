package storage

import (
	"archive/zip"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/dustin/go-humanize"
)

// StorageZip reads a dataset straight out of a zip archive, without extracting it.
// If every entry in the archive shares a single top level directory (eg "coco2017/"),
// that directory is treated as the root.
type StorageZip struct {
	filename string
	archive  *zip.ReadCloser
	prefix   string
	files    map[string]*zip.File
	log      logs.Log
}

func NewStorageZip(log logs.Log, filename string) (*StorageZip, error) {
	archive, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("Failed to open zip archive %v: %w", filename, err)
	}
	s := &StorageZip{
		filename: filename,
		archive:  archive,
		files:    map[string]*zip.File{},
		log:      log,
	}
	var total uint64
	for _, f := range archive.File {
		s.files[f.Name] = f
		total += f.UncompressedSize64
	}
	s.prefix = commonTopDir(archive.File)
	log.Infof("Opened %v: %v entries, %v uncompressed", filename, humanize.Comma(int64(len(archive.File))), humanize.IBytes(total))
	return s, nil
}

func commonTopDir(files []*zip.File) string {
	top := ""
	for _, f := range files {
		slash := strings.IndexByte(f.Name, '/')
		if slash < 0 {
			return ""
		}
		dir := f.Name[:slash+1]
		if top == "" {
			top = dir
		} else if dir != top {
			return ""
		}
	}
	return top
}

func (s *StorageZip) ReadFile(name string) (*File, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w %v", ErrInvalidName, name)
	}
	f := s.files[s.prefix+path.Clean(name)]
	if f == nil {
		return nil, &os.PathError{Op: "open", Path: s.filename + ":" + name, Err: os.ErrNotExist}
	}
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	return &File{
		Reader:     r,
		ModifiedAt: f.Modified,
		Size:       int64(f.UncompressedSize64),
	}, nil
}

func (s *StorageZip) Location() string {
	return s.filename
}

func (s *StorageZip) Close() error {
	return s.archive.Close()
}
