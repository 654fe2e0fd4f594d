// SPDX-License-Identifier: MPL-2.0

// Package propertytree decodes Factorio's binary property tree format, the
// self-describing recursive encoding used by mod-settings.dat.
//
// # Layout
//
// A settings file starts with a 9-byte header:
//
//	u64 LE   game version, four 16-bit components (major, minor, patch, build)
//	u8       header flag, must be 0
//
// followed by a single node. Every node is a type tag byte, an ignored flag
// byte and a payload:
//
//	0 None        no payload
//	1 Bool        u8, non-zero is true
//	2 Number      f64 LE
//	3 String      u8 absent flag; if 0: u8 length (255 escapes to u32 LE) + UTF-8 bytes
//	4 List        u32 LE count, then count nodes
//	5 Dictionary  u32 LE count, then count (string payload key, node) pairs
//
// Decoding is a single forward pass over an in-memory buffer with no shared
// state; [Decode] and [DecodeSettings] are safe to call concurrently.
package propertytree
