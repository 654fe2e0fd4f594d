// SPDX-License-Identifier: MPL-2.0

// Package version parses and orders dotted version strings such as "1.1.74"
// or "0.18.2.1".
//
// Versions are compared component by component after padding the shorter one
// with trailing zeros, so "1.0" and "1.0.0" are equal and "1.0" < "1.0.1" < "1.1".
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedVersion is the sentinel error wrapped by MalformedVersionError.
var ErrMalformedVersion = errors.New("malformed version")

type (
	// Tuple is an ordered sequence of non-negative version components.
	Tuple []uint64

	// MalformedVersionError is returned when a version string is empty or one of
	// its components is not an unsigned integer.
	MalformedVersionError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("malformed version %q", e.Value)
}

// Unwrap returns ErrMalformedVersion so callers can use errors.Is for programmatic detection.
func (e *MalformedVersionError) Unwrap() error { return ErrMalformedVersion }

// Parse splits text on '.' and parses each component as an unsigned integer.
func Parse(text string) (Tuple, error) {
	if text == "" {
		return nil, &MalformedVersionError{Value: text}
	}

	parts := strings.Split(text, ".")
	t := make(Tuple, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, &MalformedVersionError{Value: text}
		}
		t = append(t, n)
	}
	return t, nil
}

// MustParse is like Parse but panics on malformed input. Intended for constants and tests.
func MustParse(text string) Tuple {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// FromPacked splits a 64-bit value into four 16-bit components, lowest bits
// first: major, minor, patch, build. This is how Factorio stores its version in
// binary file headers.
func FromPacked(v uint64) Tuple {
	return Tuple{
		v & 0xffff,
		(v >> 16) & 0xffff,
		(v >> 32) & 0xffff,
		(v >> 48) & 0xffff,
	}
}

// Packed is the inverse of FromPacked. Components beyond the fourth are
// ignored and each component is truncated to 16 bits.
func (t Tuple) Packed() uint64 {
	var v uint64
	for i := 0; i < len(t) && i < 4; i++ {
		v |= (t[i] & 0xffff) << (16 * i)
	}
	return v
}

// Compare returns -1, 0 or 1 depending on whether a sorts before, equal to or
// after b. The shorter tuple is padded with zeros to the longer length.
func Compare(a, b Tuple) int {
	n := max(len(a), len(b))
	for i := range n {
		x, y := a.at(i), b.at(i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// Compare is the method form of the package-level Compare.
func (t Tuple) Compare(other Tuple) int { return Compare(t, other) }

// Equal reports whether t and other are equal after zero padding.
func (t Tuple) Equal(other Tuple) bool { return Compare(t, other) == 0 }

// Less reports whether t sorts strictly before other.
func (t Tuple) Less(other Tuple) bool { return Compare(t, other) < 0 }

// Normalize returns a copy padded with zeros to at least n components.
func (t Tuple) Normalize(n int) Tuple {
	out := make(Tuple, max(n, len(t)))
	copy(out, t)
	return out
}

// String renders the tuple in dotted form.
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, c := range t {
		parts[i] = strconv.FormatUint(c, 10)
	}
	return strings.Join(parts, ".")
}

func (t Tuple) at(i int) uint64 {
	if i < len(t) {
		return t[i]
	}
	return 0
}
