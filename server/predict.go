package server

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/nvr-ai/roi-detect/annotate"
	"github.com/nvr-ai/roi-detect/config"
	"github.com/nvr-ai/roi-detect/detector"
	"github.com/nvr-ai/roi-detect/images"
	"github.com/nvr-ai/roi-detect/models/postprocess"
	"github.com/pkg/errors"
)

const routePredict = "predict"

// predictResponse is the body of a successful request in JSON mode.
type predictResponse struct {
	Counts     annotate.Counts         `json:"counts"`
	Detections []postprocess.Detection `json:"detections"`
	Region     images.Region           `json:"region"`
	// Image is the annotated region as base64 JPEG.
	Image string `json:"image"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	raw, err := readPredictForm(r, maxBytes)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.ObserveRequest(routePredict, "too_large")
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
			return
		}
		s.writeError(w, routePredict, err)
		return
	}

	req, err := detector.DecodeRequest(raw)
	if err != nil {
		s.writeError(w, routePredict, err)
		return
	}

	res, err := s.detector.Detect(r.Context(), req.Request)
	if err != nil {
		s.writeError(w, routePredict, err)
		return
	}

	jpeg, err := images.EncodeJPEG(res.Annotated, s.cfg.JPEGQuality)
	if err != nil {
		s.writeError(w, routePredict, err)
		return
	}

	s.metrics.ObserveRequest(routePredict, "ok")
	s.metrics.ObserveDetections(res.Counts)

	if s.cfg.ResponseMode == config.ResponseJSON {
		dets := res.Detections
		if dets == nil {
			dets = []postprocess.Detection{}
		}
		writeJSON(w, http.StatusOK, predictResponse{
			Counts:     res.Counts,
			Detections: dets,
			Region:     res.Region,
			Image:      base64.StdEncoding.EncodeToString(jpeg),
		})
		return
	}

	w.Header().Set("Content-Type", images.FormatJPEG.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(jpeg))
}

// readPredictForm extracts the image bytes, corners and display options from a multipart form.
func readPredictForm(r *http.Request, maxBytes int64) (detector.RawRequest, error) {
	var raw detector.RawRequest

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return raw, err
		}
		return raw, &detector.InputError{Kind: detector.KindMissingImage, Err: errors.Wrap(err, "parsing multipart form")}
	}

	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return raw, &detector.InputError{Kind: detector.KindMissingImage, Err: errors.New("no image")}
	case err != nil:
		return raw, &detector.InputError{Kind: detector.KindInvalidImage, Err: err}
	}
	defer file.Close()

	if raw.Image, err = io.ReadAll(file); err != nil {
		return raw, &detector.InputError{Kind: detector.KindInvalidImage, Err: errors.Wrap(err, "reading image")}
	}

	raw.X1 = r.FormValue("x1")
	raw.Y1 = r.FormValue("y1")
	raw.X2 = r.FormValue("x2")
	raw.Y2 = r.FormValue("y2")
	raw.Options = r.MultipartForm.Value["options"]

	return raw, nil
}
