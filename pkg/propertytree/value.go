// SPDX-License-Identifier: MPL-2.0

package propertytree

import (
	"math"
)

// Property tree type tags as they appear on the wire.
const (
	KindNone Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindDictionary
)

type (
	// Kind identifies which variant a Value holds.
	Kind uint8

	// Value is an immutable property tree node. The zero value is None.
	Value struct {
		kind   Kind
		b      bool
		n      float64
		s      string
		absent bool
		list   []Value
		dict   *Dict
	}
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "Bool"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindDictionary:
		return "Dictionary"
	default:
		return "Unknown"
	}
}

// None returns the None value.
func None() Value { return Value{} }

// Bool returns a Bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a Number value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a present String value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// AbsentString returns a String value whose absent flag is set.
func AbsentString() Value { return Value{kind: KindString, absent: true} }

// List returns a List value holding items in order.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Dictionary returns a Dictionary value backed by d. A nil d is an empty dictionary.
func Dictionary(d *Dict) Value {
	if d == nil {
		d = NewDict()
	}
	return Value{kind: KindDictionary, dict: d}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether v is None.
func (v Value) IsNone() bool { return v.kind == KindNone }

// AsBool returns the boolean payload and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload and whether v is a Number.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string payload and whether v is a present String.
// An absent string reports ("", false).
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString && !v.absent
}

// IsAbsent reports whether v is a String with the absent flag set.
func (v Value) IsAbsent() bool { return v.kind == KindString && v.absent }

// Items returns the elements of a List, or nil for any other kind.
// The returned slice must not be modified.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Dict returns the dictionary of a Dictionary value, or nil for any other kind.
func (v Value) Dict() *Dict {
	if v.kind != KindDictionary {
		return nil
	}
	return v.dict
}

// Get looks up key when v is a Dictionary.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindDictionary {
		return Value{}, false
	}
	return v.dict.Get(key)
}

// Equal reports deep equality. Numbers compare by bit pattern so a NaN
// survives a round trip as equal to itself.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return math.Float64bits(v.n) == math.Float64bits(other.n)
	case KindString:
		return v.absent == other.absent && v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindDictionary:
		return v.dict.Equal(other.dict)
	default:
		return false
	}
}
