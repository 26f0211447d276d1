package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Resize scales img to exactly width x height with bilinear interpolation.
//
// Arguments:
//   - img: The image to resize.
//   - width: The target width in pixels.
//   - height: The target height in pixels.
//
// Returns:
//   - image.Image: The resized image, with bounds starting at (0, 0).
func Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height && b.Min == (image.Point{}) {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

// ResizeImageToImage decodes an encoded payload and resizes it.
//
// Arguments:
//   - data: The encoded image (JPEG, PNG or WebP).
//   - width: The width to resize the image to.
//   - height: The height to resize the image to.
//
// Returns:
//   - image.Image: The resized image.
//   - error: An error if the payload cannot be decoded or the size is invalid.
func ResizeImageToImage(data []byte, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid target size %dx%d", width, height)
	}

	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	return Resize(img, width, height), nil
}
