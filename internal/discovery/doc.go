// SPDX-License-Identifier: MPL-2.0

// Package discovery finds installed mods on disk and loads them into a
// modpack.Registry.
//
// Two locations are scanned:
//   - the game data directory, which holds the core and base mods as plain
//     folders (and base/info.json, which carries the game version)
//   - the mods directory, which holds user mods as zip archives or unpacked
//     folders, next to mod-list.json
//
// Problems that leave the registry usable (an older duplicate archive, a stray
// file) are returned as Diagnostics for the CLI to render. A mod whose
// info.json cannot be read aborts discovery.
package discovery
