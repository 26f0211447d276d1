// Package model - Definitions of the detection model the service loads.
package model

import (
	"github.com/nvr-ai/roi-detect/models"
	"github.com/pkg/errors"
)

// Name is the unique identifier of a model architecture.
type Name string

const (
	// ModelNameYOLOv8 is an anchor-free YOLO head emitting (4+classes, N).
	ModelNameYOLOv8 Name = "yolov8"
)

// Default tensor names of exported YOLO models.
const (
	DefaultInputName  = "images"
	DefaultOutputName = "output0"
)

// strides of the three YOLO detection heads.
var strides = []int{8, 16, 32}

// Config describes the model file and its tensor contract.
type Config struct {
	Name Name   `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	// ClassSet names a built-in class set, ignored when Classes is set.
	ClassSet models.ModelFamily `json:"class_set" yaml:"class_set"`
	// Classes lists the class names in output order.
	Classes []string `json:"classes" yaml:"classes"`
	// InputName and OutputName are the graph tensor names.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
	// InputWidth and InputHeight are the fixed input dimensions.
	InputWidth  int `json:"input_width" yaml:"input_width"`
	InputHeight int `json:"input_height" yaml:"input_height"`
	// Candidates is the number of output candidates; 0 derives it from the input size.
	Candidates int `json:"candidates" yaml:"candidates"`
	// Precision is passed to execution providers that support it.
	Precision Precision `json:"precision" yaml:"precision"`
}

// DefaultConfig returns the configuration of the inspection model.
func DefaultConfig() Config {
	return Config{
		Name:        ModelNameYOLOv8,
		Path:        "best.onnx",
		ClassSet:    models.ModelFamilyInspection,
		InputName:   DefaultInputName,
		OutputName:  DefaultOutputName,
		InputWidth:  1280,
		InputHeight: 1280,
		Precision:   PrecisionFP32,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("model path is required")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Errorf("invalid model input size %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.InputWidth%strides[len(strides)-1] != 0 || c.InputHeight%strides[len(strides)-1] != 0 {
		if c.Candidates == 0 {
			return errors.Errorf("input size %dx%d is not a multiple of %d; set candidates explicitly",
				c.InputWidth, c.InputHeight, strides[len(strides)-1])
		}
	}
	if c.InputName == "" || c.OutputName == "" {
		return errors.New("model input and output names are required")
	}
	return nil
}

// ClassNames resolves the class set of the model.
func (c Config) ClassNames() (*models.OutputClassSet, error) {
	return models.ResolveClassSet(c.ClassSet, c.Classes)
}

// InputShape returns the input tensor shape [1, 3, H, W].
func (c Config) InputShape() []int64 {
	return []int64{1, 3, int64(c.InputHeight), int64(c.InputWidth)}
}

// OutputShape returns the output tensor shape [1, 4+numClasses, N].
func (c Config) OutputShape(numClasses int) []int64 {
	return []int64{1, int64(4 + numClasses), int64(c.CandidateCount())}
}

// CandidateCount returns the number of output candidates.
//
// Unless configured, it is the number of grid cells over the three detection heads, e.g.
// 33600 for a 1280x1280 input.
func (c Config) CandidateCount() int {
	if c.Candidates > 0 {
		return c.Candidates
	}
	n := 0
	for _, s := range strides {
		n += (c.InputWidth / s) * (c.InputHeight / s)
	}
	return n
}
