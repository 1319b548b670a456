package failure

import "errors"

var (
	ErrNoClasses      = errors.New("model declares no classes")
	ErrBlankLabel     = errors.New("blank class label")
	ErrDuplicateLabel = errors.New("duplicate class label")
	ErrUnknownLabel   = errors.New("label outside compiled class set")
)
