// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
)

type (
	// ActionableError names the operation that failed, the file or directory
	// involved and what the user can do about it.
	//
	//	return issue.NewErrorContext().
	//		WithOperation("load configuration").
	//		WithResource(path).
	//		WithSuggestion("Check the CUE syntax").
	//		Wrap(err).
	//		Err()
	ActionableError struct {
		// Operation is a verb phrase such as "load configuration".
		Operation string
		// Resource is the path involved, if any.
		Resource string
		// Suggestions are printed below the message, one per line.
		Suggestions []string
		// Cause is the underlying error, if any.
		Cause error
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext starts an empty ErrorContext.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WithOperation sets the failed operation. It is required.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithResource sets the path involved.
func (c *ErrorContext) WithResource(path string) *ErrorContext {
	c.err.Resource = path
	return c
}

// WithSuggestion appends hints.
func (c *ErrorContext) WithSuggestion(hints ...string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, hints...)
	return c
}

// Wrap sets the cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Err returns a copy of the accumulated error, or nil when no operation was
// set. The context may be reused afterwards.
func (c *ErrorContext) Err() error {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}

// Error returns "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the message followed by the suggestions. Verbose output
// also lists each error in the cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())
	for _, hint := range e.Suggestions {
		b.WriteString("\n  • ")
		b.WriteString(hint)
	}
	if verbose {
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			b.WriteString("\n  caused by: ")
			b.WriteString(err.Error())
		}
	}
	return b.String()
}
