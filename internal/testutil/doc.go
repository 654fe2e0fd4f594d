// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixtures for tests that need an installed game:
// a data directory with core and base, mod folders and archives, and the
// mod-list.json and mod-settings.dat files next to them.
//
// The Must* helpers fail the test immediately on I/O errors so fixtures stay
// one line per file.
package testutil
