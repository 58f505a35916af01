package plist

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the codec.
var (
	// ErrMalformed is returned when binary input violates the format.
	ErrMalformed = errors.New("plist: malformed binary plist")

	// ErrUnsupportedValue is returned when the encoder is handed a nil value.
	ErrUnsupportedValue = errors.New("plist: unsupported value")

	// ErrNotKeyedArchive is returned when a root value lacks the keyed
	// archive layout ($archiver, $objects, $top).
	ErrNotKeyedArchive = errors.New("plist: not a keyed archive")

	// ErrUnresolvedUID is returned when a UID points outside $objects.
	ErrUnresolvedUID = errors.New("plist: unresolved uid")
)

// DecodeError locates a structural violation in binary input.
type DecodeError struct {
	Offset int64 // byte offset of the offending record, -1 if unknown
	Object int   // object table index, -1 for header/trailer problems
	Reason string
}

func (e *DecodeError) Error() string {
	switch {
	case e.Object >= 0:
		return fmt.Sprintf("%v: object %d at offset %d: %s", ErrMalformed, e.Object, e.Offset, e.Reason)
	case e.Offset >= 0:
		return fmt.Sprintf("%v: offset %d: %s", ErrMalformed, e.Offset, e.Reason)
	default:
		return fmt.Sprintf("%v: %s", ErrMalformed, e.Reason)
	}
}

func (e *DecodeError) Unwrap() error { return ErrMalformed }
