// SPDX-License-Identifier: MPL-2.0

// Package modpack models installed Factorio mods and resolves the order in
// which they load.
//
// A mod is identified by the "name" field of its info.json and carries a
// version, a list of dependency declarations and up to three stage scripts
// (data, data-updates and data-final-fixes). Mods are read through a Source,
// which hides whether the mod is an unpacked directory or a zip archive.
//
// The Registry holds every installed mod together with the enabled flags from
// mod-list.json. Resolve validates the declared dependencies of every enabled
// mod against the registry and produces a LoadOrder: core and base first, then
// every other enabled mod sorted by dependency depth and name.
package modpack
