package model

// Precision represents the precision of the model.
type Precision string

const (
	// PrecisionAccuracy keeps the model's native input precision (OpenVINO's ACCURACY mode).
	PrecisionAccuracy Precision = "ACCURACY"
	// PrecisionFP32 represents 32-bit floating point precision.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 represents 16-bit floating point precision.
	PrecisionFP16 Precision = "FP16"
)
