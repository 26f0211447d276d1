// Package inference - Inference engine interface and implementations
package inference

import "github.com/pkg/errors"

// EngineType is the type of the engine
type EngineType string

const (
	// EngineONNXRuntime runs the model with the onnxruntime library.
	EngineONNXRuntime EngineType = "onnxruntime"
	// EngineOpenCV runs the model with the OpenCV DNN module.
	EngineOpenCV EngineType = "opencv"
)

// Engines is a list of all supported engines
var Engines = []EngineType{EngineONNXRuntime, EngineOpenCV}

// ParseEngineType converts a configuration string into an engine type. Empty selects
// onnxruntime.
func ParseEngineType(s string) (EngineType, error) {
	if s == "" {
		return EngineONNXRuntime, nil
	}
	for _, e := range Engines {
		if string(e) == s {
			return e, nil
		}
	}
	return "", errors.Errorf("unknown inference backend %q", s)
}
