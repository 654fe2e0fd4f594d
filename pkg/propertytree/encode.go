// SPDX-License-Identifier: MPL-2.0

package propertytree

import (
	"encoding/binary"
	"math"

	"github.com/factoriotools/modloader/pkg/version"
)

// Encode serialises v in the property tree wire format. It is the inverse of
// Decode and is used to produce fixtures and to check round trips.
func Encode(v Value) []byte {
	return appendNode(nil, v)
}

// EncodeSettings serialises a complete settings file including the header.
func EncodeSettings(s *Settings) []byte {
	buf := binary.LittleEndian.AppendUint64(nil, s.Version.Packed())
	buf = append(buf, 0)
	return appendNode(buf, s.Tree)
}

// NewSettings wraps tree in a Settings for the given game version.
func NewSettings(v version.Tuple, tree Value) *Settings {
	return &Settings{Version: v, Tree: tree}
}

func appendNode(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.kind), 0)
	switch v.kind {
	case KindBool:
		if v.b {
			return append(buf, 1)
		}
		return append(buf, 0)
	case KindNumber:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.n))
	case KindString:
		return appendString(buf, v)
	case KindList:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.list)))
		for _, item := range v.list {
			buf = appendNode(buf, item)
		}
		return buf
	case KindDictionary:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v.dict.Len()))
		for k, item := range v.dict.All() {
			buf = appendString(buf, String(k))
			buf = appendNode(buf, item)
		}
		return buf
	default:
		return buf
	}
}

func appendString(buf []byte, v Value) []byte {
	if v.absent {
		return append(buf, 1)
	}
	buf = append(buf, 0)
	if n := len(v.s); n < longStringMarker {
		buf = append(buf, byte(n))
	} else {
		buf = append(buf, longStringMarker)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(n))
	}
	return append(buf, v.s...)
}
