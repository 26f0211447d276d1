// Package detector runs the region-of-interest detection pipeline.
package detector

import (
	"context"
	"image"

	"github.com/nvr-ai/roi-detect/annotate"
	"github.com/nvr-ai/roi-detect/images"
	"github.com/nvr-ai/roi-detect/inference"
	"github.com/nvr-ai/roi-detect/models"
	"github.com/nvr-ai/roi-detect/models/postprocess"
	"github.com/nvr-ai/roi-detect/models/preprocess"
	"github.com/nvr-ai/roi-detect/profiler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Stage names recorded by the profiler.
const (
	StageTransform = "transform"
	StageInference = "inference"
	StageDecode    = "decode"
	StageNMS       = "nms"
	StageAnnotate  = "annotate"
)

// Config holds the pipeline thresholds.
type Config struct {
	// Prefilter drops decoded candidates below this class score.
	Prefilter float32 `yaml:"prefilter"`
	// NMS configures suppression.
	NMS postprocess.NMSConfig `yaml:",inline"`
}

// DefaultConfig returns a pre-filter of 0.3 and joint suppression at score 0.5, IoU 0.5.
func DefaultConfig() Config {
	return Config{Prefilter: postprocess.DefaultPrefilterThreshold, NMS: postprocess.DefaultNMSConfig()}
}

// Validate checks the thresholds are in [0, 1].
func (c Config) Validate() error {
	for name, v := range map[string]float32{
		"prefilter": c.Prefilter,
		"score":     c.NMS.ScoreThreshold,
		"iou":       c.NMS.IoUThreshold,
	} {
		if v < 0 || v > 1 {
			return errors.Errorf("threshold %s=%v outside [0, 1]", name, v)
		}
	}
	return nil
}

// Request is one detection call.
type Request struct {
	Image image.Image
	// X1, Y1, X2, Y2 are the region corners as supplied by the caller, in any order.
	X1, Y1, X2, Y2 int
	Display        annotate.DisplayConfig
}

// Result is the outcome of a detection call.
type Result struct {
	// Region is the canonical region.
	Region images.Region `json:"region"`
	// Detections are the retained detections in original image coordinates.
	Detections []postprocess.Detection `json:"detections"`
	// Local are the same detections in region coordinates.
	Local []postprocess.Detection `json:"-"`
	// Counts maps class names to detection counts.
	Counts annotate.Counts `json:"counts"`
	// Annotated is the annotated copy of the region.
	Annotated *image.RGBA `json:"-"`
}

// Detector wires the pipeline stages around an inference engine.
type Detector struct {
	engine    inference.Engine
	pre       *preprocess.Preprocessor
	decoder   *postprocess.Decoder
	nms       postprocess.NMSConfig
	classes   *models.OutputClassSet
	annotator *annotate.Annotator
	profiler  *profiler.Profiler
	logger    *zap.SugaredLogger
}

// Args are the dependencies of a Detector.
type Args struct {
	Engine     inference.Engine
	Preprocess preprocess.Config
	Config     Config
	Classes    *models.OutputClassSet
	Style      annotate.Style
	Profiler   *profiler.Profiler
	Logger     *zap.SugaredLogger
}

// New creates a detector.
//
// Arguments:
//   - args: The engine, class set, thresholds and ambient dependencies.
//
// Returns:
//   - *Detector: The detector.
//   - error: An error if the configuration is invalid.
func New(args Args) (*Detector, error) {
	if args.Engine == nil {
		return nil, errors.New("inference engine is required")
	}
	if args.Classes == nil || args.Classes.Len() == 0 {
		return nil, errors.New("class set is required")
	}
	if err := args.Preprocess.Validate(); err != nil {
		return nil, err
	}
	if err := args.Config.Validate(); err != nil {
		return nil, err
	}
	if args.Logger == nil {
		args.Logger = zap.NewNop().Sugar()
	}

	return &Detector{
		engine:    args.Engine,
		pre:       preprocess.NewPreprocessor(args.Preprocess, args.Logger.Named("preprocess")),
		decoder:   postprocess.NewDecoder(args.Config.Prefilter, args.Classes.Len()),
		nms:       args.Config.NMS,
		classes:   args.Classes,
		annotator: annotate.NewAnnotator(args.Classes, args.Style),
		profiler:  args.Profiler,
		logger:    args.Logger,
	}, nil
}

// Classes returns the class set of the detector.
func (d *Detector) Classes() *models.OutputClassSet {
	return d.classes
}

// Detect runs the pipeline for one request.
//
// The region is validated before anything else; an empty region fails with an InputError of
// kind empty_roi and the engine is never invoked. Engine failures and undecodable outputs fail
// with an InferenceError. There are no partial results.
func (d *Detector) Detect(ctx context.Context, req Request) (*Result, error) {
	if req.Image == nil {
		return nil, inputError(KindMissingImage, errors.New("no image"))
	}

	b := req.Image.Bounds()
	region, err := images.SelectRegion(req.X1, req.Y1, req.X2, req.Y2, b.Dx(), b.Dy())
	if err != nil {
		return nil, inputError(KindEmptyROI, err)
	}
	crop := images.Crop(req.Image, region)

	done := d.profiler.StartOperation(StageTransform)
	transformed := d.pre.Transform(crop)
	done()

	done = d.profiler.StartOperation(StageInference)
	out, err := d.engine.Run(ctx, inference.NewInputTensor(transformed.Data, transformed.Shape))
	done()
	if err != nil {
		return nil, &InferenceError{Err: err}
	}

	done = d.profiler.StartOperation(StageDecode)
	candidates, err := d.decoder.Decode(out)
	done()
	if err != nil {
		return nil, &InferenceError{Err: err}
	}

	mapper := postprocess.NewMapper(transformed.Params, region)

	done = d.profiler.StartOperation(StageNMS)
	local := postprocess.ApplyGreedyNMS(mapper.MapAll(candidates, postprocess.SpaceRegion), d.nms)
	done()

	global := make([]postprocess.Detection, len(local))
	for i, det := range local {
		global[i] = det
		global[i].Box = det.Box.Translate(region.Origin())
	}

	done = d.profiler.StartOperation(StageAnnotate)
	annotated, counts := d.annotator.Annotate(crop, local, req.Display)
	done()

	d.logger.Debugw("detected",
		"region", region,
		"candidates", len(candidates),
		"retained", len(local),
		"counts", counts,
	)

	return &Result{
		Region:     region,
		Detections: global,
		Local:      local,
		Counts:     counts,
		Annotated:  annotated,
	}, nil
}
