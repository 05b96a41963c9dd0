package imagecodec

import (
	"fmt"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/cocoyolo/pkg/storage"
)

// Codec turns an image file in the dataset into decoded RGB pixels
type Codec interface {
	Decode(name string) (*cimg.Image, error)
}

// StorageCodec decodes JPEG and PNG files out of a Storage
type StorageCodec struct {
	store storage.Storage
}

func NewStorageCodec(store storage.Storage) *StorageCodec {
	return &StorageCodec{store: store}
}

// Decode reads and decompresses an image. Grayscale and RGBA images are converted to RGB.
func (c *StorageCodec) Decode(name string) (*cimg.Image, error) {
	raw, err := storage.ReadFile(c.store, name)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(raw)
}

// DecodeBytes decompresses an encoded image into RGB
func DecodeBytes(raw []byte) (*cimg.Image, error) {
	img, err := cimg.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("Failed to decode image: %w", err)
	}
	if img.NChan() == 3 {
		return img, nil
	}
	return img.ToRGB(), nil
}

// EncodeJPEG is the inverse of Decode, for writing synthetic or debug images
func EncodeJPEG(img *cimg.Image, quality int) ([]byte, error) {
	return cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling444, quality, 0))
}
