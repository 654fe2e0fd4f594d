// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/modloader/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/modloader/config.cue on macOS, %APPDATA%\modloader\config.cue
// on Windows), falling back to ./config.cue. Every key can be overridden from the
// environment with the MODLOADER_ prefix, nested keys joined by underscores
// (MODLOADER_OUTPUT_FORMAT=toml).
//
// Configuration files are validated against a CUE schema (config_schema.cue); the merged
// result, environment included, is validated again with Config.IsValid.
package config
