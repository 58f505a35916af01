package plist

import (
	"errors"
	"strconv"
)

// SkipChildren may be returned by a WalkFunc to skip the members of the
// current container.
var SkipChildren = errors.New("plist: skip children")

// WalkFunc is called for every value in depth-first order. path holds the
// dictionary keys and "[i]" indexes leading to v.
type WalkFunc func(path []string, v Value) error

// Walk visits v and everything it contains. Dictionary members are visited
// in sorted key order.
func Walk(v Value, fn WalkFunc) error {
	return walk(nil, v, fn)
}

func walk(path []string, v Value, fn WalkFunc) error {
	if err := fn(path, v); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	switch t := v.(type) {
	case *Array:
		if t == nil {
			return nil
		}
		for i, item := range t.Items {
			if err := walk(appendPath(path, "["+strconv.Itoa(i)+"]"), item, fn); err != nil {
				return err
			}
		}
	case *Dict:
		for _, k := range t.SortedKeys() {
			if err := walk(appendPath(path, k), t.vals[k], fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

// CountUIDs returns the number of UID markers reachable from v.
func CountUIDs(v Value) int {
	n := 0
	_ = Walk(v, func(_ []string, v Value) error {
		if _, ok := v.(UID); ok {
			n++
		}
		return nil
	})
	return n
}
