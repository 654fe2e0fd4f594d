// SPDX-License-Identifier: MPL-2.0

// Package pipeline drives a scripting engine through the three data stages
// (data, data-updates, data-final-fixes) in a resolved load order.
//
// The engine is an explicit collaborator owned by the caller: one engine per
// run, never shared between runs. Between mods the orchestrator asks the engine
// to forget loaded modules and per-mod state, which is the only isolation
// between mods. The first failure stops the run.
package pipeline
