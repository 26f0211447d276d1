package detector

import (
	"strconv"
	"strings"

	"github.com/nvr-ai/roi-detect/annotate"
	"github.com/nvr-ai/roi-detect/images"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// RawRequest is a request as received from a transport: undecoded image bytes and textual corners.
type RawRequest struct {
	Image          []byte
	X1, Y1, X2, Y2 string
	Options        []string
}

// Decoded is a decoded RawRequest together with the metadata of the uploaded image.
type Decoded struct {
	Request
	Source *images.Image
}

// DecodeRequest validates and decodes a raw request.
//
// A missing image fails with kind missing_image, undecodable bytes with invalid_image and any
// non-integer corner with invalid_roi. All corner errors are reported together.
func DecodeRequest(raw RawRequest) (*Decoded, error) {
	if len(raw.Image) == 0 {
		return nil, inputError(KindMissingImage, errors.New("image is required"))
	}

	var (
		err    error
		coords [4]int
	)
	for i, field := range []struct{ name, value string }{
		{"x1", raw.X1}, {"y1", raw.Y1}, {"x2", raw.X2}, {"y2", raw.Y2},
	} {
		v, perr := strconv.Atoi(strings.TrimSpace(field.value))
		if perr != nil {
			err = multierr.Append(err, errors.Errorf("%s: %q is not an integer", field.name, field.value))
			continue
		}
		coords[i] = v
	}
	if err != nil {
		return nil, inputError(KindInvalidROI, err)
	}

	img, meta, err := images.Decode(raw.Image)
	if err != nil {
		return nil, inputError(KindInvalidImage, err)
	}

	return &Decoded{
		Request: Request{
			Image:   img,
			X1:      coords[0],
			Y1:      coords[1],
			X2:      coords[2],
			Y2:      coords[3],
			Display: annotate.ParseDisplayOptions(raw.Options),
		},
		Source: meta,
	}, nil
}
