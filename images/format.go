package images

import (
	"net/http"
	"strings"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format. Decode only.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format. Decode only.
	FormatBMP ImageFormat = "bmp"
)

// ContentType returns the MIME type of the format.
func (f ImageFormat) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	default:
		return "image/jpeg"
	}
}

// DetectFormat sniffs the format of an encoded payload.
//
// Returns an empty format when the payload is not one of the supported formats.
func DetectFormat(data []byte) ImageFormat {
	switch ct := http.DetectContentType(data); {
	case ct == "image/jpeg":
		return FormatJPEG
	case ct == "image/png":
		return FormatPNG
	case ct == "image/webp", strings.HasPrefix(ct, "image/webp"):
		return FormatWebP
	case ct == "image/bmp":
		return FormatBMP
	}
	return ""
}
