package plist

// Limits bounds the resources a single decode may consume. They guard
// against hostile inputs (huge counts, deep nesting) in the session blob.
type Limits struct {
	// Maximum number of entries in the object table. Default: 4,000,000.
	MaxObjects int

	// Maximum container nesting depth. Default: 512.
	MaxDepth int

	// Maximum array or dictionary length. Default: 1,000,000.
	MaxContainerLength int

	// Maximum data or string length in bytes. Default: 256 MB.
	MaxDataLength int64
}

// DefaultLimits returns a Limits struct with safe default values.
func DefaultLimits() Limits {
	return Limits{
		MaxObjects:         4_000_000,
		MaxDepth:           512,
		MaxContainerLength: 1_000_000,
		MaxDataLength:      256 * 1024 * 1024,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxObjects <= 0 {
		l.MaxObjects = d.MaxObjects
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxContainerLength <= 0 {
		l.MaxContainerLength = d.MaxContainerLength
	}
	if l.MaxDataLength <= 0 {
		l.MaxDataLength = d.MaxDataLength
	}
	return l
}
