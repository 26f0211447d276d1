// Package models - Definitions for model output class styles and sets.
package models

// ModelFamily identifies the naming convention / dataset of a model's output classes.
type ModelFamily string

const (
	// ModelFamilyInspection is the two-class pipe inspection model the service ships with.
	ModelFamilyInspection ModelFamily = "inspection"
	// ModelFamilyYOLO is the 80 COCO classes, zero-based, no background.
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyVOC is the 20 Pascal VOC classes, zero-based, no background.
	ModelFamilyVOC ModelFamily = "voc"
	// ModelFamilyCustom marks a class list supplied by configuration.
	ModelFamilyCustom ModelFamily = "custom"
)
