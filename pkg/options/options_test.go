package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/cocoyolo/pkg/nn"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	opt, err := Parse("train", "test", []string{"train", "--dataset_root", "/data/coco"})
	require.NoError(t, err)
	require.Equal(t, "train_yolov3", opt.ExperimentName)
	require.Equal(t, "COCO", opt.DatasetName)
	require.Equal(t, "/data/coco", opt.DatasetRoot)
	require.Equal(t, 100, opt.TotalEpoch)
	require.Equal(t, 0.002, opt.LearningRate)
	require.Equal(t, 0.9, opt.Momentum)
	require.Equal(t, 0.0005, opt.Decay)
	require.Equal(t, []string{"1"}, opt.GPUs())
	require.Equal(t, 2, opt.Workers)
	require.Equal(t, 5000, opt.LogIter)
	require.Equal(t, 5000, opt.SaveIter)
	require.Equal(t, 50, opt.ValidBatch)
	require.Equal(t, 416, opt.NetSize)
	require.Equal(t, 32, opt.MinSize)
	require.False(t, opt.Debug)
	require.False(t, opt.FreezeDarknet)
	mode, _, err := opt.ResumeMode()
	require.NoError(t, err)
	require.Equal(t, ResumeNone, mode)
}

func TestFlags(t *testing.T) {
	opt, err := Parse("train", "test", []string{"train",
		"--dataset_root", "coco.zip",
		"--batch_size", "16",
		"--learning_rate", "0.01",
		"--gpu_ids", "0, 2",
		"--resume", "12",
		"--net_size", "608",
		"--debug",
		"--freeze_darknet",
		"--seed", "7",
	})
	require.NoError(t, err)
	require.Equal(t, 16, opt.BatchSize)
	require.Equal(t, 0.01, opt.LearningRate)
	require.Equal(t, []string{"0", "2"}, opt.GPUs())
	require.True(t, opt.Debug)
	require.True(t, opt.FreezeDarknet)
	mode, epoch, err := opt.ResumeMode()
	require.NoError(t, err)
	require.Equal(t, ResumeEpoch, mode)
	require.Equal(t, 12, epoch)

	model, err := opt.LoadModelConfig()
	require.NoError(t, err)
	require.Equal(t, 608, model.Width)
	require.Equal(t, nn.COCOAnchors, model.Anchors)

	cfg := opt.DatasetConfig("train", model)
	require.True(t, cfg.Train)
	require.Equal(t, 608, cfg.NetWidth)
	require.Equal(t, uint64(7), cfg.Seed)
	require.Equal(t, 16, cfg.BatchSize)
	require.False(t, opt.DatasetConfig("val", model).Train)
}

func TestResumeModes(t *testing.T) {
	for value, expect := range map[string]ResumeMode{
		"load_darknet": ResumeDarknet,
		"load_yolov3":  ResumeYOLOv3,
		"0":            ResumeEpoch,
	} {
		mode, _, err := (&Options{Resume: value}).ResumeMode()
		require.NoError(t, err)
		require.Equal(t, expect, mode)
	}
	_, _, err := (&Options{Resume: "sometimes"}).ResumeMode()
	require.Error(t, err)
	_, _, err = (&Options{Resume: "-3"}).ResumeMode()
	require.Error(t, err)
}

func TestInvalid(t *testing.T) {
	bad := [][]string{
		{"train"}, // no dataset_root
		{"train", "--dataset_root", "x", "--net_size", "400"},
		{"train", "--dataset_root", "x", "--batch_size", "0"},
		{"train", "--dataset_root", "x", "--workers", "0"},
		{"train", "--dataset_root", "x", "--resume", "maybe"},
		{"train", "--dataset_root", "x", "--batch_size", "many"},
		{"train", "--dataset_root", "x", "--no_such_flag"},
	}
	for _, args := range bad {
		_, err := Parse("train", "test", args)
		require.Error(t, err, "%v", args)
	}
}

func TestModelConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(file, []byte("classes: [a, b, c]\n"), 0644))
	opt, err := Parse("train", "test", []string{"train", "--dataset_root", "x", "--model_config", file, "--net_size", "320"})
	require.NoError(t, err)
	model, err := opt.LoadModelConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, model.Classes)
	require.Equal(t, 320, model.Height)

	opt.ModelConfig = filepath.Join(dir, "missing.json")
	_, err = opt.LoadModelConfig()
	require.Error(t, err)
}

func TestClassFile(t *testing.T) {
	dir := t.TempDir()
	names := filepath.Join(dir, "coco.names")
	require.NoError(t, os.WriteFile(names, []byte("person\n\n  bicycle \ncar\n"), 0644))
	opt, err := Parse("train", "test", []string{"train", "--dataset_root", "x", "--class_file", names})
	require.NoError(t, err)
	model, err := opt.LoadModelConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"person", "bicycle", "car"}, model.Classes)
	require.Equal(t, nn.COCOAnchors, model.Anchors)

	empty := filepath.Join(dir, "empty.names")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0644))
	opt.ClassFile = empty
	_, err = opt.LoadModelConfig()
	require.Error(t, err)

	opt.ClassFile = filepath.Join(dir, "missing.names")
	_, err = opt.LoadModelConfig()
	require.Error(t, err)
}
