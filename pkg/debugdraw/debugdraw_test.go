package debugdraw

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/cocoyolo/pkg/bbox"
	"github.com/cyclopcam/cocoyolo/pkg/dataset"
	"github.com/cyclopcam/cocoyolo/pkg/nn"
	"github.com/cyclopcam/cocoyolo/pkg/yolo"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func makeSample(t *testing.T) *dataset.Sample {
	anchors, err := yolo.MakeAnchorSet(nn.COCOAnchors)
	require.NoError(t, err)
	boxes := bbox.MakeBoxes(bbox.Box{X1: 10, Y1: 20, X2: 126, Y2: 110})
	ignored := bbox.MakeBoxes(bbox.Box{X1: 200, Y1: 200, X2: 300, Y2: 300})
	grids, err := yolo.NewEncoder(anchors, 80).Encode(boxes, []int{2}, ignored, 416, 416)
	require.NoError(t, err)
	img := cimg.NewImage(416, 416, cimg.PixelFormatRGB)
	img.Pixels[0] = 77
	return &dataset.Sample{
		ImageID:   42,
		Image:     img,
		ImagePath: "images/val2017/000000000042.jpg",
		PadScale:  [2]float32{1, 1},
		OrigShape: [2]float32{416, 416},
		Grids:     grids,
		Boxes:     boxes,
		Labels:    []int{2},
		Ignored:   ignored,
	}
}

func TestDrawSample(t *testing.T) {
	s := makeSample(t)
	drawn, err := DrawSample(s, nil)
	require.NoError(t, err)
	require.Equal(t, 416, drawn.Bounds().Dx())
	require.Equal(t, 416, drawn.Bounds().Dy())
	// Pixels away from any annotation keep their source value
	r, _, _, a := drawn.At(0, 0).RGBA()
	require.Equal(t, uint32(77), r>>8)
	require.Equal(t, uint32(255), a>>8)
	r, g, b, _ := drawn.At(410, 5).RGBA()
	require.Equal(t, []uint32{0, 0, 0}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestPositives(t *testing.T) {
	s := makeSample(t)
	pos := Positives(s.Grids)
	require.Len(t, pos, 1)
	require.Equal(t, 0, pos[0].Scale)
	require.Equal(t, 2, pos[0].Class)
	require.InDelta(t, 68, pos[0].X, 1e-3)
	require.InDelta(t, 65, pos[0].Y, 1e-3)
}

func TestWriteSample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	s := makeSample(t)
	png, err := WriteSample(dir, s, nn.COCOClasses)
	require.NoError(t, err)
	require.FileExists(t, png)

	raw, err := os.ReadFile(filepath.Join(dir, "000000000042.json"))
	require.NoError(t, err)
	labels := nn.ImageLabels{}
	require.NoError(t, json.Unmarshal(raw, &labels))
	require.Equal(t, int64(42), labels.ImageID)
	require.Len(t, labels.Objects, 1)
	require.Equal(t, 2, labels.Objects[0].Class)
	require.Equal(t, float32(126), labels.Objects[0].Box.X2)
	require.Len(t, labels.Ignored, 1)
}
