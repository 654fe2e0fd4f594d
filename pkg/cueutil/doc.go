// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates JSON and CUE documents against embedded CUE
// schemas and decodes them into Go values.
//
// JSON is valid CUE, so the same Schema checks info.json, mod-list.json and
// the CUE config file. A Schema compiles its source once and can be shared
// between goroutines:
//
//	//go:embed info_schema.cue
//	var infoSchemaSource string
//
//	var infoSchema = cueutil.NewSchema(infoSchemaSource, "#ModInfo")
//
//	info, err := cueutil.Decode[Info](infoSchema, data, "angelsrefining/info.json")
//
// Failures are reported as *ValidationError with one FieldError per
// offending field, using JSON-path notation (mods[3].enabled).
package cueutil
