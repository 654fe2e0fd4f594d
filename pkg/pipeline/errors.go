// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineExecution is returned when the engine fails while running a
	// mod's stage script.
	ErrEngineExecution = errors.New("engine execution failed")
	// ErrUnknownMod is returned when the load order names a mod the mod set
	// does not contain.
	ErrUnknownMod = errors.New("load order names an unknown mod")
)

// EngineExecutionError identifies the unit of work that failed.
type EngineExecutionError struct {
	Stage Stage
	Mod   string
	File  string
	Cause error
}

// Error implements the error interface.
func (e *EngineExecutionError) Error() string {
	return fmt.Sprintf("%s stage: mod %q: %s: %v", e.Stage, e.Mod, e.File, e.Cause)
}

// Unwrap returns ErrEngineExecution and the engine's error.
func (e *EngineExecutionError) Unwrap() []error {
	return []error{ErrEngineExecution, e.Cause}
}
