// Package plisttest builds binary property lists for tests.
//
// Table gives byte-level control over the object table, which lets tests
// produce shared objects, cycles and malformed records. Binary serialises a
// plist.Value directly.
package plisttest

import (
	"encoding/binary"
	"math"
	"time"
	"unicode/utf16"

	"github.com/Schewwpid/note2PDF/plist"
)

// RefSize is the object reference width used by Table.
const RefSize = 2

// Table is an object table under construction.
type Table struct {
	objs [][]byte
}

// Add appends a raw object record and returns its index.
func (t *Table) Add(record []byte) int {
	t.objs = append(t.objs, record)
	return len(t.objs) - 1
}

// Reserve appends a placeholder and returns its index. Set fills it later,
// which is how forward references and cycles are written.
func (t *Table) Reserve() int { return t.Add(nil) }

// Set replaces the record at index i.
func (t *Table) Set(i int, record []byte) { t.objs[i] = record }

// Len returns the number of objects.
func (t *Table) Len() int { return len(t.objs) }

// Bytes lays out the objects, offset table and trailer with top as root.
func (t *Table) Bytes(top int) []byte {
	out := []byte("bplist00")
	offsets := make([]uint64, len(t.objs))
	for i, rec := range t.objs {
		offsets[i] = uint64(len(out))
		out = append(out, rec...)
	}
	tableOffset := uint64(len(out))
	offSize := 1
	for ; offSize < 8 && tableOffset >= 1<<(8*offSize); offSize++ {
	}
	for _, off := range offsets {
		out = appendUint(out, off, offSize)
	}
	trailer := make([]byte, 32)
	trailer[6] = byte(offSize)
	trailer[7] = RefSize
	binary.BigEndian.PutUint64(trailer[8:], uint64(len(t.objs)))
	binary.BigEndian.PutUint64(trailer[16:], uint64(top))
	binary.BigEndian.PutUint64(trailer[24:], tableOffset)
	return append(out, trailer...)
}

// Bool returns a boolean record.
func Bool(v bool) []byte {
	if v {
		return []byte{0x09}
	}
	return []byte{0x08}
}

// Int returns the smallest integer record holding v.
func Int(v int64) []byte {
	switch {
	case v < 0:
		return appendUint([]byte{0x13}, uint64(v), 8)
	case v <= math.MaxUint8:
		return []byte{0x10, byte(v)}
	case v <= math.MaxUint16:
		return appendUint([]byte{0x11}, uint64(v), 2)
	case v <= math.MaxUint32:
		return appendUint([]byte{0x12}, uint64(v), 4)
	}
	return appendUint([]byte{0x13}, uint64(v), 8)
}

// Int128 returns a 16-byte integer record.
func Int128(high, low uint64) []byte {
	b := appendUint([]byte{0x14}, high, 8)
	return appendUint(b, low, 8)
}

// Real returns a double record.
func Real(v float64) []byte {
	return appendUint([]byte{0x23}, math.Float64bits(v), 8)
}

// Real32 returns a single-precision record.
func Real32(v float32) []byte {
	return appendUint([]byte{0x22}, uint64(math.Float32bits(v)), 4)
}

// Date returns a date record.
func Date(t time.Time) []byte {
	secs := float64(t.Sub(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))) / float64(time.Second)
	return DateSeconds(secs)
}

// DateSeconds returns a date record holding raw seconds since 2001.
func DateSeconds(secs float64) []byte {
	return appendUint([]byte{0x33}, math.Float64bits(secs), 8)
}

// Data returns a data record.
func Data(b []byte) []byte {
	return append(header(0x4, len(b)), b...)
}

// ASCII returns an ASCII string record. s is written byte for byte.
func ASCII(s string) []byte {
	return append(header(0x5, len(s)), s...)
}

// UTF16 returns a UTF-16BE string record.
func UTF16(s string) []byte {
	return UTF16Units(utf16.Encode([]rune(s))...)
}

// UTF16Units returns a UTF-16BE string record holding raw code units.
func UTF16Units(units ...uint16) []byte {
	b := header(0x6, len(units))
	for _, u := range units {
		b = appendUint(b, uint64(u), 2)
	}
	return b
}

// UID returns a UID record of the minimal width.
func UID(v uint64) []byte {
	n := 1
	for ; n < 8 && v >= 1<<(8*n); n++ {
	}
	return appendUint([]byte{0x80 | byte(n-1)}, v, n)
}

// Array returns an array record referencing refs.
func Array(refs ...int) []byte {
	b := header(0xA, len(refs))
	for _, r := range refs {
		b = appendUint(b, uint64(r), RefSize)
	}
	return b
}

// Dict returns a dictionary record. keys and vals must have equal length.
func Dict(keys, vals []int) []byte {
	b := header(0xD, len(keys))
	for _, r := range keys {
		b = appendUint(b, uint64(r), RefSize)
	}
	for _, r := range vals {
		b = appendUint(b, uint64(r), RefSize)
	}
	return b
}

func header(kind byte, n int) []byte {
	if n < 15 {
		return []byte{kind<<4 | byte(n)}
	}
	return append([]byte{kind<<4 | 0x0f}, Int(int64(n))...)
}

func appendUint(b []byte, v uint64, size int) []byte {
	for i := size - 1; i >= 0; i-- {
		b = append(b, byte(v>>(8*uint(i))))
	}
	return b
}

// Binary serialises v as a complete binary property list. Every value gets
// its own object; nothing is shared.
func Binary(v plist.Value) []byte {
	var t Table
	top := add(&t, v)
	return t.Bytes(top)
}

func add(t *Table, v plist.Value) int {
	switch x := v.(type) {
	case plist.String:
		if isASCII(string(x)) {
			return t.Add(ASCII(string(x)))
		}
		return t.Add(UTF16(string(x)))
	case plist.Integer:
		if x.IsUnsigned {
			return t.Add(Int128(0, x.Unsigned))
		}
		return t.Add(Int(x.Signed))
	case plist.Real:
		return t.Add(Real(float64(x)))
	case plist.Boolean:
		return t.Add(Bool(bool(x)))
	case plist.Date:
		return t.Add(Date(x.Time))
	case plist.Data:
		return t.Add(Data(x))
	case plist.UID:
		return t.Add(UID(uint64(x)))
	case *plist.Array:
		i := t.Reserve()
		refs := make([]int, 0, x.Len())
		for _, item := range x.Items {
			refs = append(refs, add(t, item))
		}
		t.Set(i, Array(refs...))
		return i
	case *plist.Dict:
		i := t.Reserve()
		var keys, vals []int
		for _, k := range x.Keys() {
			keys = append(keys, add(t, plist.String(k)))
			val, _ := x.Get(k)
			vals = append(vals, add(t, val))
		}
		t.Set(i, Dict(keys, vals))
		return i
	}
	panic("plisttest: unsupported value")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Note1 returns the session graph of the reference scenario: a keyed archive
// whose root dictionary holds pages = [UID 3], with object 3 = {w: 612, h: 792}.
func Note1() plist.Value {
	root := plist.NewDict()
	root.Set("pages", plist.NewArray(plist.UID(3)))

	page := plist.NewDict()
	page.Set("w", plist.Int(612))
	page.Set("h", plist.Int(792))

	top := plist.NewDict()
	top.Set("root", plist.UID(1))

	archive := plist.NewDict()
	archive.Set("$archiver", plist.String("NSKeyedArchiver"))
	archive.Set("$version", plist.Int(100000))
	archive.Set("$top", top)
	archive.Set("$objects", plist.NewArray(
		plist.String("$null"),
		root,
		plist.String("filler"),
		page,
	))
	return archive
}
