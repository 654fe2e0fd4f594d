// SPDX-License-Identifier: MPL-2.0

// Package shellengine runs mod stage scripts written as POSIX shell in the
// embedded mvdan/sh interpreter.
//
// Scripts run with errexit set, so the first failing command fails the script.
// Scripts are hermetic: external programs are not executed and files are read
// only from mod sources. Globals are exported variables; composite values are
// exported as JSON. Prototypes are added with the data-extend builtin:
//
//	data-extend item iron-plate stack_size=100 subgroup=raw-material
//
// and read back with data-get TYPE NAME FIELD. Numeric and boolean field values
// are stored as numbers and booleans.
//
// source and . resolve against the bound mod's files, or another mod's with a
// "__modname__/" prefix. Sourced files are kept in a bounded LRU cache that is
// purged whenever the module cache is invalidated.
package shellengine
