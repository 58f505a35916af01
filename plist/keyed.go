package plist

import (
	"fmt"
	"strconv"
)

const nullObject = "$null"

// Keyed is a view over an NSKeyedArchiver graph. The graph itself is never
// rewritten; UIDs are followed on demand so callers that only need the raw
// tree keep the reference markers intact.
type Keyed struct {
	Archiver string
	Version  Integer
	objects  *Array
	top      *Dict
}

// NewKeyed validates the $archiver, $objects and $top layout of root.
func NewKeyed(root Value) (*Keyed, error) {
	d, ok := root.(*Dict)
	if !ok {
		return nil, fmt.Errorf("%w: root is %s", ErrNotKeyedArchive, kindOf(root))
	}
	k := &Keyed{}
	if v, ok := d.Get("$archiver"); ok {
		s, ok := v.(String)
		if !ok {
			return nil, fmt.Errorf("%w: $archiver is %s", ErrNotKeyedArchive, kindOf(v))
		}
		k.Archiver = string(s)
	}
	if v, ok := d.Get("$version"); ok {
		if i, ok := v.(Integer); ok {
			k.Version = i
		}
	}
	objs, ok := d.Get("$objects")
	if !ok {
		return nil, fmt.Errorf("%w: missing $objects", ErrNotKeyedArchive)
	}
	if k.objects, ok = objs.(*Array); !ok {
		return nil, fmt.Errorf("%w: $objects is %s", ErrNotKeyedArchive, kindOf(objs))
	}
	top, ok := d.Get("$top")
	if !ok {
		return nil, fmt.Errorf("%w: missing $top", ErrNotKeyedArchive)
	}
	if k.top, ok = top.(*Dict); !ok {
		return nil, fmt.Errorf("%w: $top is %s", ErrNotKeyedArchive, kindOf(top))
	}
	return k, nil
}

// Objects returns the number of entries in $objects.
func (k *Keyed) Objects() int { return k.objects.Len() }

// Object returns $objects[uid].
func (k *Keyed) Object(uid UID) (Value, error) {
	if uid >= UID(k.objects.Len()) {
		return nil, fmt.Errorf("%w: %d not below %d", ErrUnresolvedUID, uint64(uid), k.objects.Len())
	}
	v, _ := k.objects.Get(int(uid))
	return v, nil
}

// Resolve follows v when it is a UID and returns it unchanged otherwise.
func (k *Keyed) Resolve(v Value) (Value, error) {
	uid, ok := v.(UID)
	if !ok {
		return v, nil
	}
	return k.Object(uid)
}

// Root resolves the named entry of $top. The conventional name is "root".
func (k *Keyed) Root(name string) (Value, error) {
	v, ok := k.top.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: $top has no %q", ErrNotKeyedArchive, name)
	}
	return k.Resolve(v)
}

// Field resolves key inside the archived object obj.
func (k *Keyed) Field(obj Value, key string) (Value, bool, error) {
	d, ok := obj.(*Dict)
	if !ok {
		return nil, false, nil
	}
	v, ok := d.Get(key)
	if !ok {
		return nil, false, nil
	}
	r, err := k.Resolve(v)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", key, err)
	}
	return r, !IsNull(r), nil
}

// ClassName returns the class recorded in obj's $class entry.
func (k *Keyed) ClassName(obj Value) (string, error) {
	cls, ok, err := k.Field(obj, "$class")
	if err != nil || !ok {
		return "", err
	}
	name, _, err := k.Field(cls, "$classname")
	if err != nil {
		return "", err
	}
	s, _ := name.(String)
	return string(s), nil
}

// IsNull reports whether v is the archiver's "$null" placeholder.
func IsNull(v Value) bool {
	s, ok := v.(String)
	return ok && s == nullObject
}

func kindOf(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}

// FormatUID returns the textual form of a UID as written by the encoder.
func FormatUID(u UID) string {
	return UIDPrefix + strconv.FormatUint(uint64(u), 10)
}
