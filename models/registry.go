// Package models - registry for output class sets.
package models

// InspectionClasses are the labels of the pipe inspection model.
var InspectionClasses = []string{"pipe", "muku"}

// COCONames are the 80 COCO labels in YOLO order.
var COCONames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog",
	"horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard", "cell phone",
	"microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors",
	"teddy bear", "hair drier", "toothbrush",
}

// VOCNames are the 20 Pascal VOC labels.
var VOCNames = []string{
	"aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car", "cat", "chair", "cow",
	"diningtable", "dog", "horse", "motorbike", "person", "pottedplant", "sheep", "sofa", "train",
	"tvmonitor",
}

// DefaultClassManager returns a manager with every built-in class set registered.
func DefaultClassManager() *ClassManager {
	return NewClassManager(
		NewOutputClassSet(ModelFamilyInspection, InspectionClasses...),
		NewOutputClassSet(ModelFamilyYOLO, COCONames...),
		NewOutputClassSet(ModelFamilyVOC, VOCNames...),
	)
}

// ResolveClassSet picks the class set for a model.
//
// An explicit list of names wins. Otherwise the built-in set registered for style is used, and
// an empty style falls back to the inspection classes.
//
// Arguments:
//   - style: The class family, may be empty.
//   - names: Explicit class names, may be empty.
//
// Returns:
//   - *OutputClassSet: The resolved set.
//   - error: An error if style is set but unknown.
func ResolveClassSet(style ModelFamily, names []string) (*OutputClassSet, error) {
	if len(names) > 0 {
		return NewOutputClassSet(ModelFamilyCustom, names...), nil
	}
	if style == "" {
		style = ModelFamilyInspection
	}
	return DefaultClassManager().Get(style)
}
