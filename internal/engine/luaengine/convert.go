// SPDX-License-Identifier: MPL-2.0

package luaengine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/factoriotools/modloader/pkg/propertytree"
)

// ErrTableTooDeep is returned when a table nests deeper than
// propertytree.MaxDepth, which is how self-referencing tables end.
var ErrTableTooDeep = errors.New("table nesting too deep")

// toLua converts a property tree value into a fresh Lua value.
func toLua(L *lua.LState, v propertytree.Value) lua.LValue {
	switch v.Kind() {
	case propertytree.KindBool:
		b, _ := v.AsBool()
		return lua.LBool(b)
	case propertytree.KindNumber:
		n, _ := v.AsNumber()
		return lua.LNumber(n)
	case propertytree.KindString:
		if s, ok := v.AsString(); ok {
			return lua.LString(s)
		}
		return lua.LNil
	case propertytree.KindList:
		items := v.Items()
		tb := L.CreateTable(len(items), 0)
		for i, item := range items {
			tb.RawSetInt(i+1, toLua(L, item))
		}
		return tb
	case propertytree.KindDictionary:
		d := v.Dict()
		tb := L.CreateTable(0, d.Len())
		for k, item := range d.All() {
			tb.RawSetString(k, toLua(L, item))
		}
		return tb
	default:
		return lua.LNil
	}
}

// fromLua converts a Lua value into a property tree value. Functions,
// userdata, threads and channels are dropped from tables.
func fromLua(lv lua.LValue) (propertytree.Value, error) {
	return convertValue(lv, 0)
}

func convertValue(lv lua.LValue, depth int) (propertytree.Value, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return propertytree.None(), nil
	case lua.LBool:
		return propertytree.Bool(bool(v)), nil
	case lua.LNumber:
		return propertytree.Number(float64(v)), nil
	case lua.LString:
		return propertytree.String(string(v)), nil
	case *lua.LTable:
		if depth >= propertytree.MaxDepth {
			return propertytree.Value{}, ErrTableTooDeep
		}
		return convertTable(v, depth+1)
	default:
		return propertytree.Value{}, fmt.Errorf("cannot convert %s", lv.Type())
	}
}

type tableEntry struct {
	key   string
	index int
	value lua.LValue
}

func convertTable(tb *lua.LTable, depth int) (propertytree.Value, error) {
	var entries []tableEntry
	tb.ForEach(func(k, v lua.LValue) {
		if !convertible(v) {
			return
		}
		entries = append(entries, tableEntry{key: keyString(k), index: arrayIndex(k), value: v})
	})

	if isSequence(entries) {
		slices.SortFunc(entries, func(a, b tableEntry) int { return a.index - b.index })
		items := make([]propertytree.Value, len(entries))
		for i, entry := range entries {
			item, err := convertValue(entry.value, depth)
			if err != nil {
				return propertytree.Value{}, fmt.Errorf("[%d]: %w", entry.index, err)
			}
			items[i] = item
		}
		return propertytree.List(items...), nil
	}

	slices.SortFunc(entries, func(a, b tableEntry) int { return strings.Compare(a.key, b.key) })
	d := propertytree.NewDict()
	for _, entry := range entries {
		item, err := convertValue(entry.value, depth)
		if err != nil {
			return propertytree.Value{}, fmt.Errorf("%s: %w", entry.key, err)
		}
		d.Set(entry.key, item)
	}
	return propertytree.Dictionary(d), nil
}

// isSequence reports whether the keys are exactly 1..n with n > 0.
func isSequence(entries []tableEntry) bool {
	if len(entries) == 0 {
		return false
	}
	seen := make([]bool, len(entries)+1)
	for _, entry := range entries {
		if entry.index < 1 || entry.index > len(entries) || seen[entry.index] {
			return false
		}
		seen[entry.index] = true
	}
	return true
}

// arrayIndex returns the integer value of a numeric key, or 0.
func arrayIndex(k lua.LValue) int {
	n, ok := k.(lua.LNumber)
	if !ok {
		return 0
	}
	f := float64(n)
	if f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func keyString(k lua.LValue) string {
	if n, ok := k.(lua.LNumber); ok {
		return strconv.FormatFloat(float64(n), 'f', -1, 64)
	}
	return k.String()
}

func convertible(v lua.LValue) bool {
	switch v.Type() {
	case lua.LTNil, lua.LTBool, lua.LTNumber, lua.LTString, lua.LTTable:
		return true
	default:
		return false
	}
}
