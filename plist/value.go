// Package plist decodes binary property lists into a closed value model and
// writes that model back out in the XML property-list form.
//
// The value model has exactly one variant per kind: String, Integer, Real,
// Boolean, Date, Data, *Dict, *Array and UID. UID is the archiver's object
// reference marker. It survives decoding as its own variant and is written as
// a "UID:<n>" string, because the XML form has no reference primitive.
package plist

import (
	"math"
	"math/big"
	"sort"
	"strconv"
	"time"
)

// Kind identifies a Value variant.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindReal
	KindBoolean
	KindDate
	KindData
	KindDict
	KindArray
	KindUID
)

var kindNames = [...]string{
	KindString:  "string",
	KindInteger: "integer",
	KindReal:    "real",
	KindBoolean: "boolean",
	KindDate:    "date",
	KindData:    "data",
	KindDict:    "dict",
	KindArray:   "array",
	KindUID:     "uid",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Value is a decoded property-list value. The set of implementations is
// closed: only the types in this package satisfy it.
type Value interface {
	Kind() Kind
	value()
}

// String is a text value.
type String string

// Integer holds a value in [-2^63, 2^64). Values above math.MaxInt64 are
// stored unsigned.
type Integer struct {
	Signed     int64
	Unsigned   uint64
	IsUnsigned bool
}

// Real is a floating-point value. Single-precision inputs are widened.
type Real float64

// Boolean is a true/false value.
type Boolean bool

// Date is a point in time with microsecond precision, in UTC.
type Date struct{ Time time.Time }

// Data is an opaque byte blob.
type Data []byte

// UID is an archiver object reference: an index into the $objects table.
type UID uint64

// Array is an ordered sequence of values.
type Array struct{ Items []Value }

// Dict maps unique string keys to values and remembers insertion order.
type Dict struct {
	keys []string
	vals map[string]Value
}

func (String) Kind() Kind  { return KindString }
func (Integer) Kind() Kind { return KindInteger }
func (Real) Kind() Kind    { return KindReal }
func (Boolean) Kind() Kind { return KindBoolean }
func (Date) Kind() Kind    { return KindDate }
func (Data) Kind() Kind    { return KindData }
func (UID) Kind() Kind     { return KindUID }
func (*Array) Kind() Kind  { return KindArray }
func (*Dict) Kind() Kind   { return KindDict }

func (String) value()  {}
func (Integer) value() {}
func (Real) value()    {}
func (Boolean) value() {}
func (Date) value()    {}
func (Data) value()    {}
func (UID) value()     {}
func (*Array) value()  {}
func (*Dict) value()   {}

// Int returns an Integer holding v.
func Int(v int64) Integer { return Integer{Signed: v} }

// Uint returns an Integer holding v.
func Uint(v uint64) Integer {
	if v <= math.MaxInt64 {
		return Integer{Signed: int64(v)}
	}
	return Integer{Unsigned: v, IsUnsigned: true}
}

// Int64 returns the value and whether it fits an int64.
func (i Integer) Int64() (int64, bool) {
	if i.IsUnsigned {
		return 0, false
	}
	return i.Signed, true
}

// Big returns the value as a big.Int.
func (i Integer) Big() *big.Int {
	if i.IsUnsigned {
		return new(big.Int).SetUint64(i.Unsigned)
	}
	return big.NewInt(i.Signed)
}

func (i Integer) String() string {
	if i.IsUnsigned {
		return strconv.FormatUint(i.Unsigned, 10)
	}
	return strconv.FormatInt(i.Signed, 10)
}

// NewArray returns an Array holding items.
func NewArray(items ...Value) *Array { return &Array{Items: items} }

// Len returns the number of items.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Items)
}

// Get returns the item at index i.
func (a *Array) Get(i int) (Value, bool) {
	if a == nil || i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}

// Append adds v to the end of the array.
func (a *Array) Append(v Value) { a.Items = append(a.Items, v) }

// NewDict returns an empty Dict.
func NewDict() *Dict { return &Dict{vals: make(map[string]Value)} }

// Set stores v under key. Setting an existing key keeps its position.
func (d *Dict) Set(key string, v Value) {
	if d.vals == nil {
		d.vals = make(map[string]Value)
	}
	if _, ok := d.vals[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = v
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (Value, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.vals[key]
	return v, ok
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

// SortedKeys returns the keys in code point order.
func (d *Dict) SortedKeys() []string {
	keys := d.Keys()
	sort.Strings(keys)
	return keys
}
