// Package images - Image processing utilities
package images

import "image"

// Rect is a lightweight bounding box in corner form.
type Rect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	// X2,Y2 are exclusive (like image.Rectangle).
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Dx returns the width of the rectangle.
func (r Rect) Dx() int { return r.X2 - r.X1 }

// Dy returns the height of the rectangle.
func (r Rect) Dy() int { return r.Y2 - r.Y1 }

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool { return r.X1 >= r.X2 || r.Y1 >= r.Y2 }

// Rectangle converts the rect into an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Box is an axis-aligned box in top-left + size form, the form detections are reported in.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"width"`
	H int `json:"height"`
}

// Rect converts the box into corner form.
func (b Box) Rect() Rect {
	return Rect{X1: b.X, Y1: b.Y, X2: b.X + b.W, Y2: b.Y + b.H}
}

// Center returns the integer center point of the box.
func (b Box) Center() image.Point {
	return image.Pt(b.X+b.W/2, b.Y+b.H/2)
}

// Translate returns the box shifted by the given offset.
func (b Box) Translate(p image.Point) Box {
	return Box{X: b.X + p.X, Y: b.Y + p.Y, W: b.W, H: b.H}
}

// CalculateIoU computes the Intersection over Union of two rectangles.
//
// IoU is defined as the area of the intersection divided by the area of the union:
//
//	IoU = Area of Intersection / Area of Union
//
// A value of 1.0 means the rectangles are identical, 0.0 means they do not overlap. Rectangles
// that only touch along an edge have no intersection.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//
//	iouScore := CalculateIoU(rect1, rect2) // 25 / (100 + 100 - 25) = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	// Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
	areaR := r.Dx() * r.Dy()
	areaO := o.Dx() * o.Dy()
	union := areaR + areaO - interArea
	if union <= 0 {
		return 0.0
	}

	return float32(interArea) / float32(union)
}
