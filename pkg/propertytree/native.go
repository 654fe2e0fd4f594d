// SPDX-License-Identifier: MPL-2.0

package propertytree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Native converts v into plain Go values: nil, bool, float64, string, []any
// and map[string]any. Absent strings become nil. Dictionary order is lost;
// use MarshalJSON when order matters.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		if v.absent {
			return nil
		}
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindDictionary:
		out := make(map[string]any, v.dict.Len())
		for k, item := range v.dict.All() {
			out[k] = item.Native()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v as JSON, keeping dictionary key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNone:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		if v.absent {
			return []byte("null"), nil
		}
		return json.Marshal(v.s)
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindDictionary:
		return v.dict.MarshalJSON()
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPropertyType, v.kind)
	}
}

// FromNative builds a Value from plain Go values. Maps are inserted in sorted
// key order so the result is deterministic.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return None(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case string:
		return String(t), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return List(items...), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			item, err := FromNative(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = item
		}
		return List(items...), nil
	case map[string]string:
		d := NewDict()
		for _, k := range slices.Sorted(maps.Keys(t)) {
			d.Set(k, String(t[k]))
		}
		return Dictionary(d), nil
	case map[string]any:
		d := NewDict()
		for _, k := range slices.Sorted(maps.Keys(t)) {
			item, err := FromNative(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			d.Set(k, item)
		}
		return Dictionary(d), nil
	default:
		return Value{}, fmt.Errorf("unsupported native type %T", x)
	}
}
