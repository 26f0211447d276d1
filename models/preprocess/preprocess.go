// Package preprocess maps a region buffer into the fixed-size tensor a detection model expects.
package preprocess

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nvr-ai/roi-detect/images"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ColorOrder defines the ordering of the color planes in the tensor.
type ColorOrder string

const (
	// ColorOrderRGB writes the planes as R, G, B.
	ColorOrderRGB ColorOrder = "RGB"
	// ColorOrderBGR writes the planes as B, G, R.
	ColorOrderBGR ColorOrder = "BGR"
)

// DefaultPadColor is the gray used to fill letterbox padding.
var DefaultPadColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Config defines preprocessing configuration for a model.
type Config struct {
	// InputWidth and InputHeight are the model input dimensions.
	InputWidth  int `yaml:"input_width"`
	InputHeight int `yaml:"input_height"`
	// Policy selects letterbox or stretch.
	Policy Policy `yaml:"policy"`
	// PadColor fills letterbox padding.
	PadColor color.RGBA `yaml:"-"`
	// ColorOrder selects the plane order of the tensor.
	ColorOrder ColorOrder `yaml:"color_order"`
}

// DefaultConfig returns the configuration of the deployed detector: 1280x1280 stretched RGB.
func DefaultConfig() Config {
	return Config{
		InputWidth:  1280,
		InputHeight: 1280,
		Policy:      PolicyStretch,
		PadColor:    DefaultPadColor,
		ColorOrder:  ColorOrderRGB,
	}
}

// Validate checks the configuration for values the transform cannot work with.
func (c Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Errorf("invalid input size %dx%d", c.InputWidth, c.InputHeight)
	}
	if !c.Policy.Valid() {
		return errors.Errorf("unknown transform policy %q", c.Policy)
	}
	if c.ColorOrder != ColorOrderRGB && c.ColorOrder != ColorOrderBGR {
		return errors.Errorf("unknown color order %q", c.ColorOrder)
	}
	return nil
}

// Result contains the model-ready tensor and the parameters needed to invert the transform.
type Result struct {
	// Data is the CHW float32 tensor normalized to [0, 1].
	Data []float32
	// Shape is the tensor shape [1, 3, height, width].
	Shape []int64
	// Params records the forward transform.
	Params Params
}

// Preprocessor handles image preprocessing for detection models.
type Preprocessor struct {
	config Config
	logger *zap.SugaredLogger
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
// - config: The preprocessing configuration.
// - logger: Optional logger; nil disables logging.
//
// Returns:
// - A configured Preprocessor instance.
//
// @example
//
//	p := NewPreprocessor(Config{
//	    InputWidth:  640,
//	    InputHeight: 640,
//	    Policy:      PolicyLetterbox,
//	    PadColor:    DefaultPadColor,
//	    ColorOrder:  ColorOrderRGB,
//	}, logger)
func NewPreprocessor(config Config, logger *zap.SugaredLogger) *Preprocessor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if config.PadColor == (color.RGBA{}) {
		config.PadColor = DefaultPadColor
	}
	if config.ColorOrder == "" {
		config.ColorOrder = ColorOrderRGB
	}
	return &Preprocessor{config: config, logger: logger}
}

// Config returns the preprocessing configuration.
func (p *Preprocessor) Config() Config {
	return p.config
}

// Transform resizes img into the model input and converts it to a normalized CHW tensor.
//
// The image must have positive dimensions; callers guarantee this by selecting a non-empty
// region first.
//
// Arguments:
// - img: The region buffer.
//
// Returns:
// - *Result containing the tensor and transform parameters.
func (p *Preprocessor) Transform(img image.Image) *Result {
	b := img.Bounds()
	params := ComputeParams(p.config.Policy, b.Dx(), b.Dy(), p.config.InputWidth, p.config.InputHeight)

	canvas := p.render(img, params)
	data := p.toTensor(canvas)

	p.logger.Debugw("transformed region",
		"policy", params.Policy,
		"src", []int{params.SrcWidth, params.SrcHeight},
		"ratio", params.Ratio,
		"pad", []int{params.PadX, params.PadY},
		"scale", []float32{params.ScaleX, params.ScaleY},
	)

	return &Result{
		Data:   data,
		Shape:  []int64{1, 3, int64(p.config.InputHeight), int64(p.config.InputWidth)},
		Params: params,
	}
}

// render draws the resized content onto a model-sized canvas.
func (p *Preprocessor) render(img image.Image, params Params) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, params.DstWidth, params.DstHeight))

	nw, nh := params.ScaledSize()
	if params.Policy == PolicyLetterbox {
		draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: p.config.PadColor}, image.Point{}, draw.Src)
	}

	resized := images.Resize(img, nw, nh)
	dst := image.Rect(params.PadX, params.PadY, params.PadX+nw, params.PadY+nh)
	draw.Draw(canvas, dst, resized, resized.Bounds().Min, draw.Src)

	return canvas
}

// toTensor converts the canvas into planar float32 data scaled to [0, 1].
func (p *Preprocessor) toTensor(canvas *image.RGBA) []float32 {
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	plane := w * h
	data := make([]float32, 3*plane)

	r, g, bl := 0, plane, 2*plane
	if p.config.ColorOrder == ColorOrderBGR {
		r, bl = bl, r
	}

	for y := 0; y < h; y++ {
		row := canvas.Pix[y*canvas.Stride : y*canvas.Stride+4*w]
		for x := 0; x < w; x++ {
			i := y*w + x
			data[r+i] = float32(row[4*x]) / 255.0
			data[g+i] = float32(row[4*x+1]) / 255.0
			data[bl+i] = float32(row[4*x+2]) / 255.0
		}
	}

	return data
}
