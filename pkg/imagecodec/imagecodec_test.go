package imagecodec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/cocoyolo/pkg/storage"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	log := logs.NewTestingLog(t)
	root := t.TempDir()

	src := cimg.NewImage(64, 48, cimg.PixelFormatRGB)
	for i := range src.Pixels {
		src.Pixels[i] = 128
	}
	jpg, err := EncodeJPEG(src, 95)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), jpg, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "junk.jpg"), []byte("not an image"), 0644))

	store, err := storage.Open(log, root)
	require.NoError(t, err)
	codec := NewStorageCodec(store)

	img, err := codec.Decode("a.jpg")
	require.NoError(t, err)
	require.Equal(t, 64, img.Width)
	require.Equal(t, 48, img.Height)
	require.Equal(t, 3, img.NChan())
	require.InDelta(t, 128, int(img.Pixels[img.Stride*10+30]), 3)

	_, err = codec.Decode("junk.jpg")
	require.Error(t, err)

	_, err = codec.Decode("missing.jpg")
	require.True(t, storage.IsNotExist(err))
}
