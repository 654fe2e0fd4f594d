// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions. The Issue catalog holds Markdown guides for the failures users
// can fix themselves (missing or incompatible mods, broken settings files,
// failing mod scripts), rendered in the terminal with glamour.
package issue
