// Package raw is the PDF object model handed to the serialiser. Values are
// plain Go types; the writer decides their byte form.
package raw

import (
	"fmt"
	"maps"
	"slices"
)

// ObjectRef identifies an indirect object. It is also an Object: placed
// inside a dictionary or array it serialises as "num gen R".
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is implemented by every type in this package.
type Object interface {
	pdfObject()
}

// Name is a PDF name without the leading slash.
type Name string

// Integer is a PDF integer.
type Integer int64

// Real is a PDF real number.
type Real float64

// Bool is a PDF boolean.
type Bool bool

// String is a PDF string. Hex selects the <...> form.
type String struct {
	Bytes []byte
	Hex   bool
}

// Array is an ordered list of objects.
type Array struct {
	Items []Object
}

// Append adds objs to the end of a.
func (a *Array) Append(objs ...Object) { a.Items = append(a.Items, objs...) }

// Len returns the number of items.
func (a *Array) Len() int { return len(a.Items) }

// Dict maps names to objects.
type Dict struct {
	entries map[string]Object
}

// Set stores v under key, replacing any previous value.
func (d *Dict) Set(key string, v Object) {
	if d.entries == nil {
		d.entries = make(map[string]Object)
	}
	d.entries[key] = v
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (Object, bool) {
	v, ok := d.entries[key]
	return v, ok
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.entries) }

// Keys returns the keys in byte order, the order they are written in.
func (d *Dict) Keys() []string { return slices.Sorted(maps.Keys(d.entries)) }

// Stream is a dictionary followed by already-encoded data.
type Stream struct {
	Dict *Dict
	Data []byte
}

func (ObjectRef) pdfObject() {}
func (Name) pdfObject()      {}
func (Integer) pdfObject()   {}
func (Real) pdfObject()      {}
func (Bool) pdfObject()      {}
func (String) pdfObject()    {}
func (*Array) pdfObject()    {}
func (*Dict) pdfObject()     {}
func (*Stream) pdfObject()   {}

// NewDict returns an empty dictionary.
func NewDict() *Dict { return &Dict{entries: make(map[string]Object)} }

// NewArray returns an array holding items.
func NewArray(items ...Object) *Array { return &Array{Items: items} }

// NewStream pairs dict with data.
func NewStream(dict *Dict, data []byte) *Stream { return &Stream{Dict: dict, Data: data} }

// Str returns a literal string.
func Str(b []byte) String { return String{Bytes: b} }

// HexStr returns a hexadecimal string.
func HexStr(b []byte) String { return String{Bytes: b, Hex: true} }
