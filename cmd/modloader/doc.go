// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modloader.
//
// The root command wires configuration, logging and the issue catalog; the
// subcommands resolve the load order, dump mod-settings.dat and run the staged
// data pipeline to extract the prototype document.
package cmd
