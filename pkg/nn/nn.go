package nn

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package nn describes the detection network that the training data is being prepared for.

// Canonical network input size of YOLOv3 on COCO
const DefaultInputSize = 416

// COCOAnchors are the YOLOv3 anchors for COCO at 416x416, as (width, height), smallest first.
var COCOAnchors = [][2]float32{
	{10, 13}, {16, 30}, {33, 23},
	{30, 61}, {62, 45}, {59, 119},
	{116, 90}, {156, 198}, {373, 326},
}

// ModelConfig is saved in a JSON (or YAML) file along with the weights of the NN model
type ModelConfig struct {
	Architecture string       `json:"architecture" yaml:"architecture"` // eg "yolov3"
	Width        int          `json:"width" yaml:"width"`               // eg 416
	Height       int          `json:"height" yaml:"height"`             // eg 416
	Classes      []string     `json:"classes" yaml:"classes"`           // eg ["person", "bicycle", "car", ...]
	Anchors      [][2]float32 `json:"anchors" yaml:"anchors"`           // (width, height) at Width x Height, smallest first
}

// DefaultModelConfig is YOLOv3 on the 80 COCO classes
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		Architecture: "yolov3",
		Width:        DefaultInputSize,
		Height:       DefaultInputSize,
		Classes:      append([]string{}, COCOClasses...),
		Anchors:      append([][2]float32{}, COCOAnchors...),
	}
}

func (c *ModelConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("Invalid model size %v x %v", c.Width, c.Height)
	}
	if c.Width%32 != 0 || c.Height%32 != 0 {
		return fmt.Errorf("Model size %v x %v must be a multiple of 32", c.Width, c.Height)
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("Model has no classes")
	}
	if len(c.Anchors) != 9 {
		return fmt.Errorf("Expected 9 anchors, but model has %v", len(c.Anchors))
	}
	for _, a := range c.Anchors {
		if a[0] <= 0 || a[1] <= 0 {
			return fmt.Errorf("Invalid anchor %v x %v", a[0], a[1])
		}
	}
	return nil
}

// Load model config from a JSON or YAML file (chosen by file extension).
// Fields that are missing from the file keep their default values.
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := DefaultModelConfig()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, config)
	default:
		err = json.Unmarshal(b, config)
	}
	if err != nil {
		return nil, fmt.Errorf("Failed to parse model config %v: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("Model config %v: %w", filename, err)
	}
	return config, nil
}

// Load a text file with class names on each line
func LoadClassFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	return classes, scanner.Err()
}
