// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

var (
	// ErrInvalidDocument is wrapped by every ValidationError.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrTooLarge is returned for documents above the schema's size limit.
	ErrTooLarge = errors.New("document too large")
)

type (
	// FieldError is one problem CUE reported, located by JSON path.
	FieldError struct {
		// Path is empty for syntax errors.
		Path    string
		Message string
	}

	// ValidationError lists every problem found in one document.
	ValidationError struct {
		File   string
		Fields []FieldError
	}
)

// Error renders a single problem on one line and several problems indented
// below the file name.
func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		lines[i] = f.String()
	}
	if len(lines) == 1 {
		return e.File + ": " + lines[0]
	}
	return fmt.Sprintf("%s: %d problems:\n  %s", e.File, len(lines), strings.Join(lines, "\n  "))
}

// Unwrap returns ErrInvalidDocument.
func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

func (f FieldError) String() string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// newValidationError converts a CUE error into a *ValidationError for file.
func newValidationError(err error, file string) error {
	ve := &ValidationError{File: file}
	for _, e := range cueerrors.Errors(err) {
		path := jsonPath(cueerrors.Path(e))
		msg := e.Error()
		// CUE repeats the path at the start of some messages.
		if path != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		ve.Fields = append(ve.Fields, FieldError{Path: path, Message: msg})
	}
	if len(ve.Fields) == 0 {
		ve.Fields = []FieldError{{Message: err.Error()}}
	}
	return ve
}

// jsonPath renders CUE path selectors as mods[0].name.
func jsonPath(sel []string) string {
	var b strings.Builder
	for i, part := range sel {
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
