// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of an extraction:
//   - mod-settings.dat decoding and version parsing
//   - info.json and dependency string parsing
//   - discovery of folders and archives
//   - load order resolution
//   - the data stage under the Lua and shell engines
//
// To generate a PGO profile, run:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
//	mv internal/benchmark/default.pgo .
package benchmark
