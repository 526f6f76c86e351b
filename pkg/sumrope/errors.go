package sumrope

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, matched with errors.Is against the error returned
// by any fallible operation.
var (
	// ErrOutOfRange indicates an index or offset exceeded its valid
	// interval.
	ErrOutOfRange = errors.New("sumrope: out of range")

	// ErrInvalidArgument indicates an argument other than a range index
	// was invalid, e.g. a negative count or a dimension outside {0, 1}.
	ErrInvalidArgument = errors.New("sumrope: invalid argument")

	// ErrInvalidEncoding indicates text passed to NewRLEGroup was not
	// valid UTF-8.
	ErrInvalidEncoding = errors.New("sumrope: invalid encoding")
)

func outOfRangef(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrOutOfRange)
}

func invalidArgf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}

func invalidEncodingf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidEncoding)
}
