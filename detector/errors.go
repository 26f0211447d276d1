package detector

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies input errors.
type Kind string

const (
	KindMissingImage Kind = "missing_image"
	KindInvalidImage Kind = "invalid_image"
	KindInvalidROI   Kind = "invalid_roi"
	KindEmptyROI     Kind = "empty_roi"
	// KindInferenceFailed is the kind reported for InferenceError.
	KindInferenceFailed Kind = "inference_failed"
)

// InputError is a client error: the request cannot be processed as given. It is never retried.
type InputError struct {
	Kind Kind
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// InferenceError reports a failure of the inference engine or an undecodable output.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func inputError(kind Kind, err error) error {
	return &InputError{Kind: kind, Err: err}
}

// KindOf returns the kind of err, or "" when it is neither an InputError nor an InferenceError.
func KindOf(err error) Kind {
	var in *InputError
	if errors.As(err, &in) {
		return in.Kind
	}
	var inf *InferenceError
	if errors.As(err, &inf) {
		return KindInferenceFailed
	}
	return ""
}
