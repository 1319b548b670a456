package model

import "errors"

var (
	ErrLoadModel   = errors.New("load model")
	ErrArtifact    = errors.New("invalid model artifact")
	ErrWidth       = errors.New("row width does not match model")
	ErrRemote      = errors.New("inference service error")
	ErrRemoteShape = errors.New("inference service returned malformed output")
)
