package storage

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, filename string, files map[string]string) {
	f, err := os.Create(filename)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestStorageFS(t *testing.T) {
	log := logs.NewTestingLog(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images", "val2017"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "val2017", "a.jpg"), []byte("hello"), 0644))

	s, err := Open(log, root)
	require.NoError(t, err)
	b, err := ReadFile(s, "images/val2017/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	_, err = ReadFile(s, "images/val2017/missing.jpg")
	require.True(t, IsNotExist(err))

	_, err = ReadFile(s, "../etc/passwd")
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = Open(log, filepath.Join(root, "nope"))
	require.Error(t, err)
}

func TestStorageZip(t *testing.T) {
	log := logs.NewTestingLog(t)
	dir := t.TempDir()

	// Archive with a single top level directory
	nested := filepath.Join(dir, "coco.zip")
	writeZip(t, nested, map[string]string{
		"coco2017/annotations/instances_val2017.json": "{}",
		"coco2017/images/val2017/a.jpg":               "jpeg",
	})
	s, err := Open(log, nested)
	require.NoError(t, err)
	b, err := ReadFile(s, "images/val2017/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "jpeg", string(b))
	_, err = ReadFile(s, "images/val2017/b.jpg")
	require.True(t, IsNotExist(err))
	require.NoError(t, s.(*StorageZip).Close())

	// Archive without a common root
	flat := filepath.Join(dir, "flat.zip")
	writeZip(t, flat, map[string]string{
		"annotations/instances_val2017.json": "{}",
		"images/val2017/a.jpg":               "jpeg2",
	})
	s, err = Open(log, flat)
	require.NoError(t, err)
	b, err = ReadFile(s, "images/val2017/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "jpeg2", string(b))
}
