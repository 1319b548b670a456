package inference

import "errors"

var (
	ErrMissingFeature = errors.New("missing feature column")
	ErrShape          = errors.New("unexpected probability matrix shape")
	ErrProbability    = errors.New("probability out of range")
	ErrPredict        = errors.New("model call failed")
)
