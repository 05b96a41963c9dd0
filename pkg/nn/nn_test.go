package nn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadModelConfig(t *testing.T) {
	dir := t.TempDir()

	jsonFile := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{"architecture": "yolov3-tiny", "width": 320, "height": 256}`), 0644))
	cfg, err := LoadModelConfig(jsonFile)
	require.NoError(t, err)
	require.Equal(t, "yolov3-tiny", cfg.Architecture)
	require.Equal(t, 320, cfg.Width)
	require.Equal(t, 256, cfg.Height)
	require.Equal(t, COCOClasses, cfg.Classes)
	require.Equal(t, COCOAnchors, cfg.Anchors)

	yamlFile := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("classes: [cat, dog]\nanchors:\n"+
		"  - [1, 2]\n  - [2, 3]\n  - [3, 4]\n  - [4, 5]\n  - [5, 6]\n  - [6, 7]\n  - [7, 8]\n  - [8, 9]\n  - [9, 10]\n"), 0644))
	cfg, err = LoadModelConfig(yamlFile)
	require.NoError(t, err)
	require.Equal(t, []string{"cat", "dog"}, cfg.Classes)
	require.Equal(t, [2]float32{9, 10}, cfg.Anchors[8])
	require.Equal(t, DefaultInputSize, cfg.Width)

	badFile := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badFile, []byte(`{"width": 100}`), 0644))
	_, err = LoadModelConfig(badFile)
	require.Error(t, err)
}

func TestCOCOTables(t *testing.T) {
	require.Len(t, COCOClasses, 80)
	require.Len(t, COCOCategoryIDs, 80)
	require.NoError(t, DefaultModelConfig().Validate())
}
