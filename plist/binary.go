package plist

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"golang.org/x/text/encoding/unicode"
)

const (
	binaryMagic = "bplist00"
	trailerSize = 32
)

// epoch2001 is the reference date for binary date values.
var epoch2001 = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Representable date range, matching the calendar range of the XML writer.
var (
	minDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(9999, time.December, 31, 23, 59, 59, 999999000, time.UTC)
)

// DecodeOption configures Decode.
type DecodeOption func(*decoder)

// WithLimits overrides the decode limits. Zero fields keep their defaults.
func WithLimits(l Limits) DecodeOption {
	return func(d *decoder) { d.limits = l.withDefaults() }
}

// Decode parses a binary property list. Object references inside the table
// are resolved eagerly and shared objects decode once; UID markers stay UID
// values. Structural problems return an error wrapping ErrMalformed.
func Decode(data []byte, opts ...DecodeOption) (Value, error) {
	d := &decoder{data: data, limits: DefaultLimits()}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.readTrailer(); err != nil {
		return nil, err
	}
	return d.object(d.top, 0)
}

type objectState uint8

const (
	stateNew objectState = iota
	stateActive
	stateDone
)

type decoder struct {
	data   []byte
	limits Limits

	offsetSize int
	refSize    int
	numObjects int
	top        int
	objEnd     int // end of the readable object area

	offsets []int
	cache   []Value
	state   []objectState
}

func (d *decoder) fail(obj int, off int, reason string) error {
	return &DecodeError{Offset: int64(off), Object: obj, Reason: reason}
}

func (d *decoder) readTrailer() error {
	if len(d.data) < len(binaryMagic)+trailerSize {
		return &DecodeError{Offset: -1, Object: -1, Reason: "input too short"}
	}
	if !bytes.HasPrefix(d.data, []byte(binaryMagic)) {
		return &DecodeError{Offset: 0, Object: -1, Reason: "bad magic"}
	}
	trailerAt := len(d.data) - trailerSize
	t := d.data[trailerAt:]
	d.offsetSize = int(t[6])
	d.refSize = int(t[7])
	numObjects := binary.BigEndian.Uint64(t[8:16])
	top := binary.BigEndian.Uint64(t[16:24])
	tableOffset := binary.BigEndian.Uint64(t[24:32])

	switch {
	case d.offsetSize < 1 || d.offsetSize > 8:
		return d.fail(-1, trailerAt, "offset size out of range")
	case d.refSize < 1 || d.refSize > 8:
		return d.fail(-1, trailerAt, "object reference size out of range")
	case numObjects == 0:
		return d.fail(-1, trailerAt, "empty object table")
	case numObjects > uint64(d.limits.MaxObjects):
		return d.fail(-1, trailerAt, "object count exceeds limit")
	case top >= numObjects:
		return d.fail(-1, trailerAt, "top object out of range")
	case tableOffset < uint64(len(binaryMagic)) || tableOffset >= uint64(trailerAt):
		return d.fail(-1, trailerAt, "offset table out of bounds")
	}
	if d.refSize < 8 && numObjects > uint64(1)<<(8*d.refSize) {
		return d.fail(-1, trailerAt, "object count exceeds reference width")
	}
	tableLen := numObjects * uint64(d.offsetSize)
	if tableLen/uint64(d.offsetSize) != numObjects || tableOffset+tableLen > uint64(trailerAt) {
		return d.fail(-1, int(tableOffset), "offset table truncated")
	}

	d.numObjects = int(numObjects)
	d.top = int(top)
	d.objEnd = trailerAt
	d.offsets = make([]int, d.numObjects)
	d.cache = make([]Value, d.numObjects)
	d.state = make([]objectState, d.numObjects)
	pos := int(tableOffset)
	for i := range d.offsets {
		off := readUint(d.data[pos : pos+d.offsetSize])
		if off < uint64(len(binaryMagic)) || off >= uint64(d.objEnd) {
			return d.fail(i, pos, "object offset out of bounds")
		}
		d.offsets[i] = int(off)
		pos += d.offsetSize
	}
	return nil
}

func (d *decoder) object(ref, depth int) (Value, error) {
	if ref < 0 || ref >= d.numObjects {
		return nil, d.fail(-1, -1, "object reference out of range")
	}
	switch d.state[ref] {
	case stateDone:
		return d.cache[ref], nil
	case stateActive:
		return nil, d.fail(ref, d.offsets[ref], "reference cycle")
	}
	if depth > d.limits.MaxDepth {
		return nil, d.fail(ref, d.offsets[ref], "nesting depth exceeds limit")
	}
	d.state[ref] = stateActive
	v, err := d.parse(ref, depth)
	if err != nil {
		return nil, err
	}
	d.cache[ref] = v
	d.state[ref] = stateDone
	return v, nil
}

func (d *decoder) parse(ref, depth int) (Value, error) {
	off := d.offsets[ref]
	marker := d.data[off]
	hi, lo := marker>>4, int(marker&0x0f)
	pos := off + 1

	switch hi {
	case 0x0:
		switch marker {
		case 0x08:
			return Boolean(false), nil
		case 0x09:
			return Boolean(true), nil
		case 0x0f:
			return Data{}, nil
		case 0x00:
			return nil, d.fail(ref, off, "null is not representable")
		}
		return nil, d.fail(ref, off, "unknown marker")

	case 0x1:
		return d.integer(ref, off, pos, lo)

	case 0x2:
		switch lo {
		case 2:
			b, err := d.bytes(ref, pos, 4)
			if err != nil {
				return nil, err
			}
			return Real(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
		case 3:
			b, err := d.bytes(ref, pos, 8)
			if err != nil {
				return nil, err
			}
			return Real(math.Float64frombits(binary.BigEndian.Uint64(b))), nil
		}
		return nil, d.fail(ref, off, "unsupported real width")

	case 0x3:
		if marker != 0x33 {
			return nil, d.fail(ref, off, "unknown marker")
		}
		b, err := d.bytes(ref, pos, 8)
		if err != nil {
			return nil, err
		}
		return d.date(ref, off, math.Float64frombits(binary.BigEndian.Uint64(b)))

	case 0x4:
		n, pos, err := d.length(ref, pos, lo)
		if err != nil {
			return nil, err
		}
		if int64(n) > d.limits.MaxDataLength {
			return nil, d.fail(ref, off, "data length exceeds limit")
		}
		b, err := d.bytes(ref, pos, n)
		if err != nil {
			return nil, err
		}
		return Data(append([]byte(nil), b...)), nil

	case 0x5:
		n, pos, err := d.length(ref, pos, lo)
		if err != nil {
			return nil, err
		}
		if int64(n) > d.limits.MaxDataLength {
			return nil, d.fail(ref, off, "string length exceeds limit")
		}
		b, err := d.bytes(ref, pos, n)
		if err != nil {
			return nil, err
		}
		for _, c := range b {
			if c >= 0x80 {
				return nil, d.fail(ref, off, "non-ASCII byte in ASCII string")
			}
		}
		return String(b), nil

	case 0x6:
		n, pos, err := d.length(ref, pos, lo)
		if err != nil {
			return nil, err
		}
		if int64(n)*2 > d.limits.MaxDataLength {
			return nil, d.fail(ref, off, "string length exceeds limit")
		}
		b, err := d.bytes(ref, pos, 2*n)
		if err != nil {
			return nil, err
		}
		s, ok := decodeUTF16(b)
		if !ok {
			return nil, d.fail(ref, off, "invalid UTF-16 string")
		}
		return String(s), nil

	case 0x8:
		b, err := d.bytes(ref, pos, lo+1)
		if err != nil {
			return nil, err
		}
		if lo+1 > 8 {
			for _, c := range b[:lo+1-8] {
				if c != 0 {
					return nil, d.fail(ref, off, "uid exceeds 64 bits")
				}
			}
			b = b[lo+1-8:]
		}
		return UID(readUint(b)), nil

	case 0xA:
		n, pos, err := d.length(ref, pos, lo)
		if err != nil {
			return nil, err
		}
		if n > d.limits.MaxContainerLength {
			return nil, d.fail(ref, off, "array length exceeds limit")
		}
		refs, err := d.refs(ref, off, pos, n)
		if err != nil {
			return nil, err
		}
		arr := &Array{Items: make([]Value, 0, n)}
		for _, r := range refs {
			v, err := d.object(r, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, v)
		}
		return arr, nil

	case 0xD:
		n, pos, err := d.length(ref, pos, lo)
		if err != nil {
			return nil, err
		}
		if n > d.limits.MaxContainerLength {
			return nil, d.fail(ref, off, "dictionary length exceeds limit")
		}
		refs, err := d.refs(ref, off, pos, 2*n)
		if err != nil {
			return nil, err
		}
		dict := &Dict{keys: make([]string, 0, n), vals: make(map[string]Value, n)}
		for i := 0; i < n; i++ {
			k, err := d.object(refs[i], depth+1)
			if err != nil {
				return nil, err
			}
			key, ok := k.(String)
			if !ok {
				return nil, d.fail(ref, off, "dictionary key is a "+k.Kind().String()+", not a string")
			}
			v, err := d.object(refs[n+i], depth+1)
			if err != nil {
				return nil, err
			}
			dict.Set(string(key), v)
		}
		return dict, nil
	}
	return nil, d.fail(ref, off, "unknown marker")
}

func (d *decoder) integer(ref, off, pos, lo int) (Value, error) {
	switch lo {
	case 0, 1, 2:
		b, err := d.bytes(ref, pos, 1<<lo)
		if err != nil {
			return nil, err
		}
		return Int(int64(readUint(b))), nil
	case 3:
		b, err := d.bytes(ref, pos, 8)
		if err != nil {
			return nil, err
		}
		return Int(int64(binary.BigEndian.Uint64(b))), nil
	case 4:
		b, err := d.bytes(ref, pos, 16)
		if err != nil {
			return nil, err
		}
		high := binary.BigEndian.Uint64(b[:8])
		low := binary.BigEndian.Uint64(b[8:])
		switch {
		case high == 0:
			return Uint(low), nil
		case high == math.MaxUint64 && low > math.MaxInt64:
			return Int(int64(low)), nil
		}
		return nil, d.fail(ref, off, "integer out of range")
	}
	return nil, d.fail(ref, off, "unsupported integer width")
}

func (d *decoder) date(ref, off int, secs float64) (Value, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return nil, d.fail(ref, off, "date is not finite")
	}
	lo := minDate.Sub(epoch2001).Seconds()
	hi := maxDate.Sub(epoch2001).Seconds()
	if secs < lo || secs > hi {
		return nil, d.fail(ref, off, "date out of range")
	}
	whole := math.Floor(secs)
	micros := math.RoundToEven((secs - whole) * 1e6)
	t := time.Unix(epoch2001.Unix()+int64(whole), 0).Add(time.Duration(micros) * time.Microsecond)
	return Date{Time: t.UTC()}, nil
}

// length decodes the count nibble, following the 0xF escape to an int object.
func (d *decoder) length(ref, pos, lo int) (int, int, error) {
	if lo != 0x0f {
		return lo, pos, nil
	}
	b, err := d.bytes(ref, pos, 1)
	if err != nil {
		return 0, 0, err
	}
	marker := b[0]
	if marker>>4 != 0x1 || marker&0x0f > 3 {
		return 0, 0, d.fail(ref, pos, "invalid length marker")
	}
	size := 1 << (marker & 0x0f)
	nb, err := d.bytes(ref, pos+1, size)
	if err != nil {
		return 0, 0, err
	}
	n := readUint(nb)
	if n > uint64(d.objEnd) {
		return 0, 0, d.fail(ref, pos, "length exceeds input")
	}
	return int(n), pos + 1 + size, nil
}

func (d *decoder) refs(ref, off, pos, n int) ([]int, error) {
	b, err := d.bytes(ref, pos, n*d.refSize)
	if err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i := range out {
		r := readUint(b[i*d.refSize : (i+1)*d.refSize])
		if r >= uint64(d.numObjects) {
			return nil, d.fail(ref, off, "object reference out of range")
		}
		out[i] = int(r)
	}
	return out, nil
}

func (d *decoder) bytes(ref, pos, n int) ([]byte, error) {
	if n < 0 || pos > d.objEnd || n > d.objEnd-pos {
		return nil, d.fail(ref, d.offsets[ref], "truncated record")
	}
	return d.data[pos : pos+n], nil
}

func readUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// decodeUTF16 decodes big-endian UTF-16, rejecting unpaired surrogates. A
// leading byte order mark is kept as U+FEFF.
func decodeUTF16(b []byte) (string, bool) {
	for i := 0; i+1 < len(b); i += 2 {
		u := binary.BigEndian.Uint16(b[i:])
		switch {
		case u >= 0xd800 && u < 0xdc00:
			if i+3 >= len(b) {
				return "", false
			}
			next := binary.BigEndian.Uint16(b[i+2:])
			if next < 0xdc00 || next >= 0xe000 {
				return "", false
			}
			i += 2
		case u >= 0xdc00 && u < 0xe000:
			return "", false
		}
	}
	out, err := utf16BE.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(out), true
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
