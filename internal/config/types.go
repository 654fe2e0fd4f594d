// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/factoriotools/modloader/pkg/version"
)

const (
	// EngineLua runs stage scripts in the embedded Lua VM.
	EngineLua EngineKind = "lua"
	// EngineShell runs stage scripts in the embedded mvdan/sh interpreter.
	EngineShell EngineKind = "shell"

	// OutputFormatJSON writes the extracted document as indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatTOML writes the extracted document as TOML.
	OutputFormatTOML OutputFormat = "toml"

	// LogFormatText is charmbracelet/log's human-readable formatter.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits logfmt key=value pairs.
	LogFormatLogfmt LogFormat = "logfmt"
)

var (
	// ErrInvalidEngineKind is returned when an EngineKind value is not recognized.
	ErrInvalidEngineKind = errors.New("invalid engine")
	// ErrInvalidOutputFormat is returned when an OutputFormat value is not recognized.
	ErrInvalidOutputFormat = errors.New("invalid output format")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidGameVersion is returned when game_version is not a dotted version.
	ErrInvalidGameVersion = errors.New("invalid game version")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// EngineKind selects the scripting engine that executes stage scripts.
	EngineKind string

	// InvalidEngineKindError is returned when an EngineKind value is not recognized.
	// It wraps ErrInvalidEngineKind for errors.Is() compatibility.
	InvalidEngineKindError struct {
		Value EngineKind
	}

	// OutputFormat selects how extracted documents are written.
	OutputFormat string

	// InvalidOutputFormatError is returned when an OutputFormat value is not recognized.
	InvalidOutputFormatError struct {
		Value OutputFormat
	}

	// LogFormat selects the log formatter.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// InvalidGameVersionError is returned when game_version does not parse.
	InvalidGameVersionError struct {
		Value string
		Err   error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// DataDir is the game's data directory holding core/ and base/.
		DataDir string `json:"data_dir" mapstructure:"data_dir"`
		// ModsDir holds user mods as zip archives or folders.
		ModsDir string `json:"mods_dir" mapstructure:"mods_dir"`
		// ModList overrides the mod-list.json path (default: <mods_dir>/mod-list.json).
		ModList string `json:"mod_list" mapstructure:"mod_list"`
		// ModSettings overrides the mod-settings.dat path (default: <mods_dir>/mod-settings.dat).
		ModSettings string `json:"mod_settings" mapstructure:"mod_settings"`
		// GameVersion pins the game version; empty means read base/info.json.
		GameVersion string `json:"game_version" mapstructure:"game_version"`
		// AllowVersionDrift accepts a settings file written by another game version.
		AllowVersionDrift bool `json:"allow_version_drift" mapstructure:"allow_version_drift"`
		// Engine selects the scripting engine.
		Engine EngineKind `json:"engine" mapstructure:"engine"`
		// Output configures where extracted data is written.
		Output OutputConfig `json:"output" mapstructure:"output"`
		// Log configures logging.
		Log LogConfig `json:"log" mapstructure:"log"`
	}

	// OutputConfig configures extract output.
	OutputConfig struct {
		// Path is the output file; empty writes to stdout.
		Path string `json:"path" mapstructure:"path"`
		// Format is json or toml.
		Format OutputFormat `json:"format" mapstructure:"format"`
	}

	// LogConfig configures the CLI logger.
	LogConfig struct {
		// Level is one of debug, info, warn, error.
		Level string `json:"level" mapstructure:"level"`
		// Format is text, json or logfmt.
		Format LogFormat `json:"format" mapstructure:"format"`
	}
)

// ModListPath returns the configured mod-list.json path.
func (c *Config) ModListPath() string {
	if c.ModList != "" {
		return c.ModList
	}
	return filepath.Join(c.ModsDir, "mod-list.json")
}

// ModSettingsPath returns the configured mod-settings.dat path.
func (c *Config) ModSettingsPath() string {
	if c.ModSettings != "" {
		return c.ModSettings
	}
	return filepath.Join(c.ModsDir, "mod-settings.dat")
}

// ParsedGameVersion returns the pinned game version, or nil when unset.
func (c *Config) ParsedGameVersion() (version.Tuple, error) {
	if c.GameVersion == "" {
		return nil, nil
	}
	v, err := version.Parse(c.GameVersion)
	if err != nil {
		return nil, &InvalidGameVersionError{Value: c.GameVersion, Err: err}
	}
	return v, nil
}

// IsValid returns whether the Config has valid fields.
// It delegates to Engine.IsValid(), Output.Format.IsValid(), Log.Format.IsValid()
// and checks that GameVersion parses when set.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Engine.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Output.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if _, err := c.ParsedGameVersion(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Error implements the error interface.
func (e *InvalidEngineKindError) Error() string {
	return fmt.Sprintf("invalid engine %q (valid: lua, shell)", e.Value)
}

// Unwrap returns ErrInvalidEngineKind for errors.Is() compatibility.
func (e *InvalidEngineKindError) Unwrap() error { return ErrInvalidEngineKind }

// String returns the string representation of the EngineKind.
func (k EngineKind) String() string { return string(k) }

// IsValid returns whether the EngineKind is one of the defined engines.
func (k EngineKind) IsValid() (bool, []error) {
	switch k {
	case EngineLua, EngineShell:
		return true, nil
	default:
		return false, []error{&InvalidEngineKindError{Value: k}}
	}
}

// ScriptExt returns the stage script extension the engine executes.
func (k EngineKind) ScriptExt() string {
	if k == EngineShell {
		return ".sh"
	}
	return ".lua"
}

// Error implements the error interface.
func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (valid: json, toml)", e.Value)
}

// Unwrap returns ErrInvalidOutputFormat for errors.Is() compatibility.
func (e *InvalidOutputFormatError) Unwrap() error { return ErrInvalidOutputFormat }

// String returns the string representation of the OutputFormat.
func (f OutputFormat) String() string { return string(f) }

// IsValid returns whether the OutputFormat is one of the defined formats.
func (f OutputFormat) IsValid() (bool, []error) {
	switch f {
	case OutputFormatJSON, OutputFormatTOML:
		return true, nil
	default:
		return false, []error{&InvalidOutputFormatError{Value: f}}
	}
}

// Error implements the error interface.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json, logfmt)", e.Value)
}

// Unwrap returns ErrInvalidLogFormat for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is one of the defined formats.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, []error{&InvalidLogFormatError{Value: f}}
	}
}

// Error implements the error interface.
func (e *InvalidGameVersionError) Error() string {
	return fmt.Sprintf("invalid game version %q: %v", e.Value, e.Err)
}

// Unwrap returns ErrInvalidGameVersion and the parse error.
func (e *InvalidGameVersionError) Unwrap() []error { return []error{ErrInvalidGameVersion, e.Err} }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:           "factorio-data",
		ModsDir:           "factorio-mods",
		ModList:           "",
		ModSettings:       "",
		GameVersion:       "",
		AllowVersionDrift: false,
		Engine:            EngineLua,
		Output: OutputConfig{
			Path:   "",
			Format: OutputFormatJSON,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}
