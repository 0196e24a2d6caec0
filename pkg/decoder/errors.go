package decoder

import (
	"errors"
	"fmt"
)

// ErrInputError wraps problems with the sentence handed to Decode, per
// original_source/src/decoder.cpp's exit(6)-on-bad-input paths.
var ErrInputError = errors.New("decoder: input error")

// ErrDataError wraps problems with the translation table or language
// model a Decoder was built from.
var ErrDataError = errors.New("decoder: data error")

// ErrInternalInvariant marks a state the search should never reach (e.g.
// every stack empty with no fallback available).
var ErrInternalInvariant = errors.New("decoder: internal invariant violated")

// NewInputError builds an ErrInputError with a formatted detail message.
func NewInputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInputError, fmt.Sprintf(format, args...))
}
