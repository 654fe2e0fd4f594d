// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxFileSize bounds the documents a Schema accepts. Mod metadata and
// config files are a few kilobytes.
const DefaultMaxFileSize int64 = 5 << 20

type (
	// SchemaOption configures a Schema.
	SchemaOption func(*Schema)

	// Schema is a compiled CUE definition. It is safe for concurrent use.
	Schema struct {
		source     string
		definition string
		maxSize    int64
		concrete   bool

		// cue.Context is not safe for concurrent use; mu guards it and
		// every value derived from it.
		mu   sync.Mutex
		once sync.Once
		ctx  *cue.Context
		root cue.Value
		err  error
	}
)

// Partial accepts documents that leave optional fields unset, such as a
// config file that overrides a single key.
func Partial() SchemaOption {
	return func(s *Schema) { s.concrete = false }
}

// MaxFileSize overrides DefaultMaxFileSize.
func MaxFileSize(n int64) SchemaOption {
	return func(s *Schema) { s.maxSize = n }
}

// NewSchema returns a Schema for the definition (for example "#ModInfo") in
// source. Compilation happens on first use; a broken source is reported by
// every Decode call.
func NewSchema(source, definition string, opts ...SchemaOption) *Schema {
	s := &Schema{
		source:     source,
		definition: definition,
		maxSize:    DefaultMaxFileSize,
		concrete:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decode validates data against s and decodes it into a T. file names the
// document in error messages.
func Decode[T any](s *Schema, data []byte, file string) (*T, error) {
	var out T
	if err := s.decode(data, file, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Schema) decode(data []byte, file string, out any) error {
	if file == "" {
		file = "<input>"
	}
	if int64(len(data)) > s.maxSize {
		return fmt.Errorf("%s: %d bytes exceeds the limit of %d: %w", file, len(data), s.maxSize, ErrTooLarge)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.once.Do(s.compile)
	if s.err != nil {
		return s.err
	}

	doc := s.ctx.CompileBytes(data, cue.Filename(file))
	if err := doc.Err(); err != nil {
		return newValidationError(err, file)
	}

	unified := s.root.Unify(doc)
	if err := unified.Validate(cue.Concrete(s.concrete)); err != nil {
		return newValidationError(err, file)
	}
	if err := unified.Decode(out); err != nil {
		return newValidationError(err, file)
	}
	return nil
}

func (s *Schema) compile() {
	s.ctx = cuecontext.New()
	compiled := s.ctx.CompileString(s.source)
	if err := compiled.Err(); err != nil {
		s.err = fmt.Errorf("compile schema: %w", err)
		return
	}
	s.root = compiled.LookupPath(cue.ParsePath(s.definition))
	if err := s.root.Err(); err != nil {
		s.err = fmt.Errorf("schema definition %s: %w", s.definition, err)
	}
}
