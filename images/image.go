// Package images - Image definition for processing utilities.
package images

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/pkg/errors"
	// Registers the BMP and WebP decoders with image.Decode.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is the quality used when none is configured.
const DefaultJPEGQuality = 90

// Image represents an encoded image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// Decode decodes an encoded payload into an image.
//
// Arguments:
//   - data: The encoded bytes (JPEG, PNG or WebP).
//
// Returns:
//   - image.Image: The decoded image.
//   - *Image: Metadata describing the payload.
//   - error: An error if the payload is empty or cannot be decoded.
func Decode(data []byte) (image.Image, *Image, error) {
	if len(data) == 0 {
		return nil, nil, errors.New("image data is empty")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, errors.Wrap(err, "decoding image")
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, nil, errors.Errorf("invalid image dimensions: %dx%d", b.Dx(), b.Dy())
	}

	return img, &Image{
		Format: DetectFormat(data),
		Data:   data,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// Encode writes img to w in the given format. WebP falls back to JPEG since only decoding is
// supported for it.
func Encode(w io.Writer, img image.Image, format ImageFormat, quality int) error {
	switch format {
	case FormatPNG:
		return errors.Wrap(png.Encode(w, img), "encoding png")
	default:
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		return errors.Wrap(jpeg.Encode(w, img, &jpeg.Options{Quality: quality}), "encoding jpeg")
	}
}

// EncodeJPEG encodes img as JPEG and returns the bytes.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, FormatJPEG, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Crop copies the region out of img into a new RGBA buffer whose bounds start at (0, 0).
//
// The source image is never modified.
func Crop(img image.Image, r Region) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Width(), r.Height()))
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min.Add(r.Origin()), draw.Src)
	return dst
}

// Clone returns a deep RGBA copy of img with bounds starting at (0, 0).
func Clone(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
