// SPDX-License-Identifier: MPL-2.0

package propertytree

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/factoriotools/modloader/pkg/version"
)

const (
	// HeaderSize is the size of the settings file header in bytes.
	HeaderSize = 9
	// MaxDepth bounds how deeply lists and dictionaries may nest.
	MaxDepth = 512

	// longStringMarker in the 1-byte length slot means a u32 length follows.
	longStringMarker = 0xff
)

type (
	// Settings is a decoded settings file.
	Settings struct {
		// Version is the game version recorded in the header.
		Version version.Tuple
		// Tree is the root node, normally a Dictionary keyed by setting type
		// ("startup", "runtime-global", "runtime-per-user").
		Tree Value
	}

	// SettingsOption configures DecodeSettings.
	SettingsOption func(*settingsOptions)

	settingsOptions struct {
		allowDrift bool
	}

	decoder struct {
		buf   []byte
		off   int
		depth int
	}
)

// WithVersionDrift makes DecodeSettings accept a header version that differs
// from the expected one instead of failing with ErrVersionMismatch.
func WithVersionDrift() SettingsOption {
	return func(o *settingsOptions) { o.allowDrift = true }
}

// Decode decodes a single property tree node from data. Bytes after the node
// are ignored.
func Decode(data []byte) (Value, error) {
	d := &decoder{buf: data}
	return d.node()
}

// DecodeSettings decodes a settings file: the 9-byte header followed by the
// root node. When expected is non-nil the header version must compare equal
// to it (with zero padding) unless WithVersionDrift is given.
func DecodeSettings(data []byte, expected version.Tuple, opts ...SettingsOption) (*Settings, error) {
	var o settingsOptions
	for _, opt := range opts {
		opt(&o)
	}

	d := &decoder{buf: data}
	packed, err := d.u64()
	if err != nil {
		return nil, err
	}
	actual := version.FromPacked(packed)

	flagOff := d.off
	flag, err := d.u8()
	if err != nil {
		return nil, err
	}
	if flag != 0 {
		return nil, &DecodeError{Offset: flagOff, Err: ErrUnsupportedHeaderFlag}
	}

	if expected != nil && !o.allowDrift && version.Compare(actual, expected) != 0 {
		return nil, &VersionMismatchError{Expected: expected, Actual: actual}
	}

	tree, err := d.node()
	if err != nil {
		return nil, err
	}
	return &Settings{Version: actual, Tree: tree}, nil
}

func (d *decoder) fail(off int, err error) error {
	return &DecodeError{Offset: off, Err: err}
}

// take returns the next n bytes or ErrTruncatedInput without consuming anything.
func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || len(d.buf)-d.off < n {
		return nil, d.fail(d.off, ErrTruncatedInput)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) u8() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) node() (Value, error) {
	tagOff := d.off
	tag, err := d.u8()
	if err != nil {
		return Value{}, err
	}
	// Any-type flag; internal to the game.
	if _, err := d.u8(); err != nil {
		return Value{}, err
	}

	switch Kind(tag) {
	case KindNone:
		return None(), nil
	case KindBool:
		b, err := d.u8()
		if err != nil {
			return Value{}, err
		}
		return Bool(b != 0), nil
	case KindNumber:
		bits, err := d.u64()
		if err != nil {
			return Value{}, err
		}
		return Number(math.Float64frombits(bits)), nil
	case KindString:
		return d.str()
	case KindList:
		return d.list()
	case KindDictionary:
		return d.dictionary()
	default:
		return Value{}, d.fail(tagOff, fmt.Errorf("%w: tag %d", ErrUnknownPropertyType, tag))
	}
}

// str reads a string payload: absent flag, space-optimised length, bytes.
func (d *decoder) str() (Value, error) {
	absent, err := d.u8()
	if err != nil {
		return Value{}, err
	}
	if absent != 0 {
		return AbsentString(), nil
	}

	short, err := d.u8()
	if err != nil {
		return Value{}, err
	}
	n := uint64(short)
	if short == longStringMarker {
		long, err := d.u32()
		if err != nil {
			return Value{}, err
		}
		n = uint64(long)
	}
	if n > uint64(len(d.buf)-d.off) {
		return Value{}, d.fail(d.off, ErrTruncatedInput)
	}

	start := d.off
	b, err := d.take(int(n))
	if err != nil {
		return Value{}, err
	}
	if !utf8.Valid(b) {
		return Value{}, d.fail(start, ErrInvalidStringEncoding)
	}
	return String(string(b)), nil
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > MaxDepth {
		return d.fail(d.off, ErrNestingTooDeep)
	}
	return nil
}

func (d *decoder) list() (Value, error) {
	count, err := d.u32()
	if err != nil {
		return Value{}, err
	}
	if err := d.enter(); err != nil {
		return Value{}, err
	}
	defer func() { d.depth-- }()

	// Every node is at least two bytes, so a count larger than half the
	// remaining input cannot be satisfied; avoid preallocating for it.
	capHint := min(uint64(count), uint64(len(d.buf)-d.off)/2)
	items := make([]Value, 0, capHint)
	for range count {
		item, err := d.node()
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return List(items...), nil
}

func (d *decoder) dictionary() (Value, error) {
	count, err := d.u32()
	if err != nil {
		return Value{}, err
	}
	if err := d.enter(); err != nil {
		return Value{}, err
	}
	defer func() { d.depth-- }()

	dict := NewDict()
	for range count {
		key, err := d.str()
		if err != nil {
			return Value{}, err
		}
		item, err := d.node()
		if err != nil {
			return Value{}, err
		}
		k, _ := key.AsString()
		dict.Set(k, item)
	}
	return Dictionary(dict), nil
}
