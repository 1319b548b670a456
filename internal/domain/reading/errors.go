package reading

import (
	"errors"
	"fmt"
)

// Sentinel kinds wrapped by LoadError.
var (
	ErrEmpty           = errors.New("file is empty")
	ErrNoColumns       = errors.New("no feature columns left after dropping identifiers")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrNoRows          = errors.New("no data rows")
	ErrMalformed       = errors.New("malformed delimited table")
	ErrBadValue        = errors.New("value is not numeric")
)

// LoadError reports why an upload could not be turned into a Table.
// Line is 1-based and counts the header; zero means "not line specific".
type LoadError struct {
	Line   int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("load readings: line %d, column %q: %v", e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("load readings: line %d: %v", e.Line, e.Err)
	case e.Column != "":
		return fmt.Sprintf("load readings: column %q: %v", e.Column, e.Err)
	default:
		return fmt.Sprintf("load readings: %v", e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }
