// SPDX-License-Identifier: MPL-2.0

// Package luaengine runs mod stage scripts in an embedded Lua 5.1 VM
// (gopher-lua).
//
// The VM starts with a small data loader (data.raw and data:extend). Modules
// are never read from the host filesystem: require resolves names against the
// bound mod's files, then "__modname__/" paths against other mods, then core's
// lualib folder.
//
// Lua tables are converted to property tree values when the document is read.
// A table is a list when its keys are exactly 1..n; every other table,
// including the empty one, is a dictionary with stringified keys. Lua cannot
// tell an empty list from an empty dictionary, so empty arrays written by
// scripts come back as empty dictionaries.
package luaengine
