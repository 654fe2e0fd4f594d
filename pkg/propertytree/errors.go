// SPDX-License-Identifier: MPL-2.0

package propertytree

import (
	"errors"
	"fmt"

	"github.com/factoriotools/modloader/pkg/version"
)

var (
	// ErrTruncatedInput is returned when a read runs past the end of the buffer.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrUnknownPropertyType is returned for a type tag outside 0..5.
	ErrUnknownPropertyType = errors.New("unknown property type")
	// ErrInvalidStringEncoding is returned when string bytes are not valid UTF-8.
	ErrInvalidStringEncoding = errors.New("invalid string encoding")
	// ErrUnsupportedHeaderFlag is returned when the settings header flag is set.
	ErrUnsupportedHeaderFlag = errors.New("unsupported header flag")
	// ErrVersionMismatch is the sentinel error wrapped by VersionMismatchError.
	ErrVersionMismatch = errors.New("settings version mismatch")
	// ErrNestingTooDeep is returned when lists or dictionaries nest beyond MaxDepth.
	ErrNestingTooDeep = errors.New("nesting too deep")
)

type (
	// DecodeError locates a decoding failure at a byte offset in the input.
	DecodeError struct {
		// Offset is the position of the read that failed.
		Offset int
		// Err is one of the package sentinels, possibly wrapped with detail.
		Err error
	}

	// VersionMismatchError is returned when the version stored in a settings
	// header differs from the version the caller expects.
	VersionMismatchError struct {
		Expected version.Tuple
		Actual   version.Tuple
	}
)

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("property tree: offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying sentinel so callers can use errors.Is.
func (e *DecodeError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("settings were written by version %s, expected %s", e.Actual, e.Expected)
}

// Unwrap returns ErrVersionMismatch so callers can use errors.Is for programmatic detection.
func (e *VersionMismatchError) Unwrap() error { return ErrVersionMismatch }
