package plist_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schewwpid/note2PDF/plist"
	pt "github.com/Schewwpid/note2PDF/plist/plisttest"
)

func TestKeyedResolvesNote1(t *testing.T) {
	k, err := plist.NewKeyed(pt.Note1())
	require.NoError(t, err)
	assert.Equal(t, "NSKeyedArchiver", k.Archiver)
	assert.Equal(t, 4, k.Objects())

	root, err := k.Root("root")
	require.NoError(t, err)

	pages, ok, err := k.Field(root, "pages")
	require.NoError(t, err)
	require.True(t, ok)

	first, _ := pages.(*plist.Array).Get(0)
	assert.Equal(t, plist.UID(3), first, "the raw graph keeps its markers")

	page, err := k.Resolve(first)
	require.NoError(t, err)
	w, ok, err := k.Field(page, "w")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, plist.Int(612), w)
}

func TestKeyedErrors(t *testing.T) {
	_, err := plist.NewKeyed(plist.NewArray())
	assert.ErrorIs(t, err, plist.ErrNotKeyedArchive)

	d := plist.NewDict()
	d.Set("$objects", plist.NewArray())
	_, err = plist.NewKeyed(d)
	assert.ErrorIs(t, err, plist.ErrNotKeyedArchive, "missing $top")

	k, err := plist.NewKeyed(pt.Note1())
	require.NoError(t, err)
	_, err = k.Resolve(plist.UID(99))
	assert.True(t, errors.Is(err, plist.ErrUnresolvedUID))

	_, err = k.Root("missing")
	assert.ErrorIs(t, err, plist.ErrNotKeyedArchive)
}

func TestKeyedClassNameAndNull(t *testing.T) {
	class := plist.NewDict()
	class.Set("$classname", plist.String("NoteSession"))

	obj := plist.NewDict()
	obj.Set("$class", plist.UID(2))
	obj.Set("title", plist.UID(0))

	top := plist.NewDict()
	top.Set("root", plist.UID(1))
	archive := plist.NewDict()
	archive.Set("$top", top)
	archive.Set("$objects", plist.NewArray(plist.String("$null"), obj, class))

	k, err := plist.NewKeyed(archive)
	require.NoError(t, err)
	root, err := k.Root("root")
	require.NoError(t, err)

	name, err := k.ClassName(root)
	require.NoError(t, err)
	assert.Equal(t, "NoteSession", name)

	title, ok, err := k.Field(root, "title")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, plist.IsNull(title))
}

func TestWalkPaths(t *testing.T) {
	inner := plist.NewDict()
	inner.Set("b", plist.UID(1))
	inner.Set("a", plist.Int(2))
	root := plist.NewArray(plist.String("x"), inner)

	var paths []string
	err := plist.Walk(root, func(path []string, v plist.Value) error {
		p := "/"
		for _, e := range path {
			p += e + "/"
		}
		paths = append(paths, p+v.Kind().String())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/array",
		"/[0]/string",
		"/[1]/dict",
		"/[1]/a/integer",
		"/[1]/b/uid",
	}, paths)
}

func TestWalkSkipAndStop(t *testing.T) {
	inner := plist.NewArray(plist.UID(1), plist.UID(2))
	root := plist.NewArray(inner, plist.UID(3))

	var seen int
	err := plist.Walk(root, func(path []string, v plist.Value) error {
		seen++
		if len(path) == 1 && v.Kind() == plist.KindArray {
			return plist.SkipChildren
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, seen)

	stop := errors.New("stop")
	err = plist.Walk(root, func([]string, plist.Value) error { return stop })
	assert.ErrorIs(t, err, stop)
}
