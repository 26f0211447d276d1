package images

import (
	"crypto/md5"
	"fmt"
	"image"
)

// ComputeChecksum generates a deterministic checksum of the pixel content of an image.
//
// Two images with identical dimensions and RGBA pixel values produce the same checksum
// regardless of their concrete type or bounds origin.
//
// Arguments:
// - img: The image to compute the checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	before := ComputeChecksum(region)
//	annotated, _ := annotator.Annotate(region, nil)
//	fmt.Println(before == ComputeChecksum(annotated)) // true
//
// ```
func ComputeChecksum(img image.Image) string {
	if img == nil || img.Bounds().Empty() {
		return "empty"
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) || rgba.Stride != 4*rgba.Bounds().Dx() {
		rgba = Clone(img)
	}

	hash := md5.New()
	fmt.Fprintf(hash, "%dx%d:", rgba.Bounds().Dx(), rgba.Bounds().Dy())
	hash.Write(rgba.Pix)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
